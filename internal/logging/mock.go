package logging

// MockLogger captures log entries for verification in tests. Loggers derived
// via WithError/WithField share the parent's entry store, so assertions on
// the root mock see everything.
type MockLogger struct {
	records       *[]LogEntry
	pendingError  error
	pendingFields []Field
}

// LogEntry is a single captured log event.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

// NewMockLogger creates an empty mock.
func NewMockLogger() *MockLogger {
	return &MockLogger{records: &[]LogEntry{}}
}

func (m *MockLogger) log(level, msg string, fields []Field) {
	all := append(append([]Field{}, m.pendingFields...), fields...)
	*m.records = append(*m.records, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  all,
		Error:   m.pendingError,
	})
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.log("DEBUG", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.log("INFO", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.log("WARN", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.log("ERROR", msg, fields) }

// WithError returns a derived logger carrying an error field.
func (m *MockLogger) WithError(err error) Logger {
	return &MockLogger{
		records:       m.records,
		pendingError:  err,
		pendingFields: m.pendingFields,
	}
}

// WithField returns a derived logger carrying an extra field.
func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return &MockLogger{
		records:       m.records,
		pendingError:  m.pendingError,
		pendingFields: append(append([]Field{}, m.pendingFields...), Field{Key: key, Value: value}),
	}
}

// Entries returns all captured log entries.
func (m *MockLogger) Entries() []LogEntry {
	return *m.records
}

// EntriesByLevel returns the captured entries of one level.
func (m *MockLogger) EntriesByLevel(level string) []LogEntry {
	var entries []LogEntry
	for _, entry := range *m.records {
		if entry.Level == level {
			entries = append(entries, entry)
		}
	}
	return entries
}

// HasEntry reports whether an entry with the given level and message exists.
func (m *MockLogger) HasEntry(level, message string) bool {
	for _, entry := range *m.records {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}
