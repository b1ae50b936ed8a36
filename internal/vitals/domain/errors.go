package vitals

// ValidationError reports an observation outside its plausibility bounds.
// User-correctable; nothing is persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "vitals: invalid " + e.Field + ": " + e.Reason
}
