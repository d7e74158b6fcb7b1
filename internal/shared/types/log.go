package types

// LogLevel identifies which console method produced a record.
type LogLevel string

const (
	LevelLog   LogLevel = "log"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelInfo  LogLevel = "info"
)

// ValidLevel reports whether s names one of the four supported console levels.
func ValidLevel(s string) bool {
	switch LogLevel(s) {
	case LevelLog, LevelWarn, LevelError, LevelInfo:
		return true
	}
	return false
}

// LogRecord is one console call or uncaught error observed inside the
// sandbox. Records are immutable once created; the ID is minted by the host
// at receipt time and is never trusted from the sandbox side.
type LogRecord struct {
	ID        string   `json:"id"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"` // ISO-8601
}
