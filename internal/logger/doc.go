// Package logger wraps zap with a process-wide sugared logger and
// context-based helpers. Components attach a named logger to the context
// once (WithName) and log through the package-level functions after that.
package logger
