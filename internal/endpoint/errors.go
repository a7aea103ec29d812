package endpoint

import "fmt"

// UnknownOptionError indicates a query option that is not part of the schema.
// Misspelled options fail resolution instead of being silently ignored.
type UnknownOptionError struct {
	Key string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %q", e.Key)
}

// InvalidOptionValueError indicates a recognized option whose value failed
// its declared parser.
type InvalidOptionValueError struct {
	Key   string
	Value string
	Cause error
}

func (e *InvalidOptionValueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid value %q for option %q: %v", e.Value, e.Key, e.Cause)
	}
	return fmt.Sprintf("invalid value %q for option %q", e.Value, e.Key)
}

func (e *InvalidOptionValueError) Unwrap() error {
	return e.Cause
}

// ConfigurationError indicates a cross-field validation failure after
// binding: an unsupported charset, or a missing starting directory.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return e.Detail
}

// ResolveError wraps any failure during endpoint resolution so callers see a
// single "resolution failed" condition carrying the specific cause.
type ResolveError struct {
	URI string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve endpoint %s: %v", e.URI, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
