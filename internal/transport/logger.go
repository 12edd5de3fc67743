package transport

import "log/slog"

// transportLogger is the fallback logger for transports built without one.
func transportLogger(name string, attrs ...any) *slog.Logger {
	logger := slog.Default().With("component", "transport."+name)
	for i := 0; i+1 < len(attrs); i += 2 {
		if value, ok := attrs[i+1].(string); ok && value == "" {
			continue
		}
		logger = logger.With(attrs[i], attrs[i+1])
	}

	return logger
}
