package core

// Actor identifies the account on whose behalf an action ran; logger
// implementations may attach it to their error reports.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// Logger is any service that can log leveled messages with free-form args.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
