// Package logging provides the shared zap logger construction used across docbox.
package logging

import "go.uber.org/zap"

// NewProductionLogger returns a production zap logger, or a no-op logger on error.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewDevelopmentLogger returns a development zap logger with human-friendly output.
func NewDevelopmentLogger() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
