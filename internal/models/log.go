package models

import "time"

// LogLevel classifies a log line for display.
type LogLevel string

const (
	LogLevelInfo     LogLevel = "info"
	LogLevelSuccess  LogLevel = "success"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelTerminal LogLevel = "terminal"
)

// LogEntry is a single log line produced during a build, run session or
// workflow execution. Entries are append-only per build/run identifier and
// mirrored to realtime subscribers.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level"`
	StepID    string    `json:"step_id,omitempty"`
	StepIndex *int      `json:"step_index,omitempty"`
}

// NewLogEntry creates a log entry stamped with the current time.
func NewLogEntry(message string, level LogLevel) LogEntry {
	return LogEntry{
		Timestamp: time.Now(),
		Message:   message,
		Level:     level,
	}
}
