package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. When debug is true it uses the development config
// (console encoding, debug level); otherwise the production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewCLILogger returns a logger for interactive commands: warnings and errors only
// unless debug is set, so progress lines do not interleave with result tables.
func NewCLILogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}
