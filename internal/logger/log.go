package logger

// Log is the consumer-facing surface of Logger, so handlers and tests
// can take a logger without binding to the file-backed implementation.
type Log interface {
	Info(category, message string)
	Warn(category, message string)
	Error(category, message string)
}

type nopLog struct{}

func (nopLog) Info(string, string)  {}
func (nopLog) Warn(string, string)  {}
func (nopLog) Error(string, string) {}

// Nop returns a Log that discards everything.
func Nop() Log { return nopLog{} }
