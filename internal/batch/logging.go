package batch

// Logger receives progress messages from batch operations. The logger
// package's ConsoleLogger, FileLogger, and NoOpLogger all satisfy it.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
}

// noopLogger backs nil option loggers so operations never nil-check mid-loop.
type noopLogger struct{}

func (noopLogger) LogDebug(message string) {}
func (noopLogger) LogInfo(message string)  {}

// orNoop returns log, or a discard logger when log is nil.
func orNoop(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
