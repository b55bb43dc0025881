package probe

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTarget  = errors.New("target must not be empty")
	ErrOptionTarget = errors.New("target must not start with '-'")
	ErrToolNotFound = errors.New("ping tool not found")
)

// ProbeError means the probe could not be executed at all. It is never used
// for a target that simply did not answer.
type ProbeError struct {
	Target string
	Tool   string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %s: %v", e.Target, e.Tool, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsProbeError reports whether err carries a *ProbeError.
func IsProbeError(err error) bool {
	var pe *ProbeError
	return errors.As(err, &pe)
}
