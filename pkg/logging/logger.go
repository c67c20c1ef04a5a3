package logging

import "go.uber.org/zap"

// New builds the process-wide zap logger. Local environments get the
// human-readable development encoder at debug level; everything else
// gets production JSON.
func New(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	return zap.NewProduction()
}
