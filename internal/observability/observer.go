// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StandardObserver records timed operations through a logrus logger
type StandardObserver struct {
	level         ObservabilityLevel
	logger        *logrus.Logger
	DebugObserver *DebugObserver // Set when running at debug level
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewLogger builds a logrus logger from a level name and a format ("text" or "json").
func NewLogger(level, format string, writer io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(writer)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return logger, nil
}

// LevelFor maps a logger level onto an observability level
func LevelFor(logger *logrus.Logger) ObservabilityLevel {
	switch {
	case logger == nil || logger.GetLevel() < logrus.InfoLevel:
		return ObservabilityOff
	case logger.GetLevel() >= logrus.DebugLevel:
		return ObservabilityDebug
	default:
		return ObservabilityMetrics
	}
}

// NewStandardObserver creates an observer on top of logger. A nil logger
// discards everything.
func NewStandardObserver(level ObservabilityLevel, logger *logrus.Logger) *StandardObserver {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
		level = ObservabilityOff
	}
	o := &StandardObserver{
		level:  level,
		logger: logger,
	}
	if level == ObservabilityDebug {
		o.DebugObserver = newDebugObserver(logger)
	}
	return o
}

// Logger returns the underlying logger
func (o *StandardObserver) Logger() *logrus.Logger {
	return o.logger
}

// Level returns the observability level
func (o *StandardObserver) Level() ObservabilityLevel {
	return o.level
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if errVal, ok := metadata["error"]; ok {
			data.Error = fmt.Sprint(errVal)
		}

		o.LogOperation(data)
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o.level == ObservabilityOff {
		return
	}

	data.RequestID = "req-" + time.Now().Format("20060102-150405")

	entry := o.logger.WithFields(logrus.Fields{
		"component":   data.Component,
		"operation":   data.Operation,
		"request_id":  data.RequestID,
		"duration_ms": data.DurationMs,
		"success":     data.Success,
	})
	if data.FilePath != "" {
		entry = entry.WithField("file", data.FilePath)
	}

	if !data.Success {
		entry.WithField("error", data.Error).Warn("operation failed")
		return
	}

	// Metadata only at debug level
	if o.level == ObservabilityDebug {
		for k, v := range data.Metadata {
			entry = entry.WithField("meta_"+k, v)
		}
		entry.Debug("operation completed")
		return
	}
	entry.Info("operation completed")
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
