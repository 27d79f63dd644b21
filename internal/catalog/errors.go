package catalog

import "fmt"

// ConfigurationError indicates a malformed catalog entry. It is fatal and
// must be reported before any sampling starts.
type ConfigurationError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("catalog configuration: %s", e.Reason)
	}
	return fmt.Sprintf("catalog configuration: %s: %s", e.Param, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
