package utils

import "go.uber.org/zap"

// NewLogger returns a console logger for development and a JSON logger otherwise.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
