package models

type LogLevel string

const (
	LogLevelSystem  LogLevel = "system"
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// ConsoleEntry is one record of the activity log. Entries are never mutated
// after creation.
type ConsoleEntry struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"` // unix millis
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
	Detail    string   `json:"detail,omitempty"`
}
