package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_PORT", "DEV", "PLANNED_RETURN_DAYS", "ADMIN_EMAIL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.App.Dev)
	assert.Equal(t, 7, cfg.App.PlannedReturnDays)
	assert.Empty(t, cfg.App.AdminEmail)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DEV", "no")
	t.Setenv("PLANNED_RETURN_DAYS", "3")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port, "bad ints fall back to the default")
	assert.False(t, cfg.App.Dev)
	assert.Equal(t, 3, cfg.App.PlannedReturnDays)
	assert.Equal(t, "s3cret", cfg.App.SessionSecret)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", d.DSN())
}
