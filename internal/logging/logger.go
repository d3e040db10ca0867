// Package logging builds the structured logger every other package writes
// through: logrus with a JSON formatter, optionally backed by a
// lumberjack-rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/npmregistry/registryd/internal/config"
)

// New builds a logrus.Logger from cfg, falling back to stdout if the log
// file's directory can't be created.
func New(cfg *config.Config) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	output, err := buildOutput(cfg.LogFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", err)
		output = os.Stdout
	}
	logger.SetOutput(output)
	return logger
}

func buildOutput(path string) (io.Writer, error) {
	if path == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 10,
		Compress:   true,
		LocalTime:  true,
	}, nil
}
