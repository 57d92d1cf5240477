// Package logger builds the zap logger used by the server and CLI.
package logger

import "go.uber.org/zap"

// New returns a development logger when dev is set, a JSON production logger otherwise.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
