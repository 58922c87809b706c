// Package logging builds the process logger and scrubs credentials from
// anything that ends up in it.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New constructs the root zap logger for the given environment.
// "local" gets human-readable development output; everything else gets
// production JSON at info level.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
