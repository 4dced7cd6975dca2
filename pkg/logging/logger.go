/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging setup for the Akira ABC-SMC sampler. Provides structured
logrus loggers with configurable level, text or JSON format, and optional file
output, shared by the engine and the command-line interface.
*/

package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config holds the logger configuration.
type Config struct {
	Level    string `json:"level"`     // logrus level name (debug, info, warn, error)
	JSONLogs bool   `json:"json_logs"` // JSON format instead of text
	File     string `json:"file"`      // Log file path; "" logs to stderr
}

// New creates a configured logrus logger.
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(parsed)

	if cfg.JSONLogs {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(file)
	}

	return logger, nil
}

// Silent returns a logger that discards everything. Used when verbose is 0
// and by tests.
func Silent() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
