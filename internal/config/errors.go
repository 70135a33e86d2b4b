package config

// Error is a config load/parse/validate failure. Code is a short,
// greppable, machine-readable tag (e.g. "CONFIG_VALIDATE"); Err is the
// underlying cause. Callers that need to distinguish config errors from
// every other failure kind a Service method can return should use
// errors.As(err, &*config.Error) rather than matching on message text.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
