// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultSessionSecret signs cookies when SESSION_SECRET is unset. Suitable
// for local development only.
const DefaultSessionSecret = "dev-secret-change-me"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig selects the driver and holds connection settings.
type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	SQLitePath string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

// AppConfig holds shop-level settings.
type AppConfig struct {
	Dev               bool
	Migrations        bool
	SessionSecret     string
	PlannedReturnDays int
	AdminEmail        string
	AdminPassword     string
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "pureclean.db"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "pureclean"),
			Password:   getEnv("DB_PASSWORD", "pureclean123"),
			DBName:     getEnv("DB_NAME", "pureclean"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Dev:               getEnvBool("DEV", true),
			Migrations:        getEnvBool("MIGRATIONS", false),
			SessionSecret:     getEnv("SESSION_SECRET", DefaultSessionSecret),
			PlannedReturnDays: getEnvInt("PLANNED_RETURN_DAYS", 7),
			AdminEmail:        os.Getenv("ADMIN_EMAIL"),
			AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool accepts "1", "true", "yes" as true.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
