package sessync

// LogEvent describes a noteworthy occurrence during load, save or merge.
// Recoverable problems (skipped fields, matcher fallbacks, lost save cycles)
// are reported here instead of failing the whole operation.
type LogEvent struct {
	Op      string
	Section string
	Detail  string
	Err     error
}

// Logger records state events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// WithLogger attaches a logger to the session.
func WithLogger(logger Logger) Option {
	return func(cfg *sessionConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
