package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// CLILogger is used for CLI commands (console encoder, stderr)
	CLILogger = zap.NewNop()

	// ServerLogger is used for the HTTP server (JSON encoder, stderr)
	ServerLogger = zap.NewNop()
)

// InitCLILogger initializes the CLI logger. verbose lowers the level to debug.
func InitCLILogger(serviceName string, verbose bool) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.TimeKey = ""

	logger, err := cfg.Build()
	if err != nil {
		exitStderr("Failed to initialize CLI logger", err)
	}

	CLILogger = logger.Named(serviceName)
}

// InitServerLogger initializes the structured server logger.
// Optional namespace parameter is attached as a static field.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLogLevel(logLevel))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	fields := []zap.Field{zap.String("service", serviceName)}
	if len(namespace) > 0 && namespace[0] != "" {
		fields = append(fields, zap.String("namespace", namespace[0]))
	}

	logger, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		exitStderr("Failed to initialize server logger", err)
	}

	ServerLogger = logger
}

// ParseLogLevel converts a config level string to a zap level.
// Unknown values fall back to info.
func ParseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes both loggers. Errors from syncing stderr are ignored.
func Sync() {
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}

// exitStderr is used for logger initialization failures before any logger exists.
func exitStderr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	os.Exit(1)
}
