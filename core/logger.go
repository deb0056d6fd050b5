package core

// Logger is any service that can report application events.
// args may contain errors or maps of extra data.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies who triggered a logged event.
type Actor struct {
	Role      string
	RequestID string
}
