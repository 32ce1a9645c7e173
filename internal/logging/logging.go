// Package logging builds the zap loggers used across this module,
// replacing the teacher's stdlib log.Printf severity-by-prefix
// convention with structured zap fields.
package logging

import "go.uber.org/zap"

// New builds a production zap logger, or a development logger with
// human-readable console output when verbose is true.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Nop returns a logger that discards everything, for tests and for
// callers that have not wired a logger in yet.
func Nop() *zap.Logger {
	return zap.NewNop()
}
