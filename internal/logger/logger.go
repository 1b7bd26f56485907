// Package logger builds the zap logger used across a run: a console
// sink on stderr whose level is gated by the verbose flag, teed with a
// JSON file sink under the project's logs directory so every run leaves
// a machine-readable trail per collection.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs the two-sink logger for a project and collection. The
// returned close function flushes and releases the file sink.
func New(projectRoot, collection string, verbose bool) (*zap.Logger, func(), error) {
	consoleLevel := zapcore.InfoLevel
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		consoleLevel,
	)

	logDir := filepath.Join(projectRoot, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(logDir, collection+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		zapcore.DebugLevel,
	)

	log := zap.New(zapcore.NewTee(console, fileCore)).
		With(zap.String("collection", collection))

	closeFn := func() {
		_ = log.Sync()
		_ = file.Close()
	}
	return log, closeFn, nil
}

// Quiet returns a logger with only the file sink, for commands whose
// stdout/stderr carry protocol or user output.
func Quiet(projectRoot, collection string) (*zap.Logger, func(), error) {
	logDir := filepath.Join(projectRoot, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(logDir, collection+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		zapcore.DebugLevel,
	)
	log := zap.New(core).With(zap.String("collection", collection))

	closeFn := func() {
		_ = log.Sync()
		_ = file.Close()
	}
	return log, closeFn, nil
}
