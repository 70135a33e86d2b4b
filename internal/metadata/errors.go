package metadata

// Error is a metadata codec failure — a module's nit_metadata section is
// missing, duplicated, or fails to decode/validate. Code is a short,
// greppable tag; Err is the underlying cause.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
