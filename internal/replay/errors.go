package replay

import "fmt"

// ConfigError reports an invalid replay configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "replay: invalid config: " + e.Message
}

// Error reports a failure during replay execution, such as a
// nondeterminism guard tripping in fail mode or a network access attempt
// during offline replay.
type Error struct {
	Code    string
	Message string
	StepID  string
}

func (e *Error) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("replay: %s: %s (step=%s)", e.Code, e.Message, e.StepID)
	}
	return fmt.Sprintf("replay: %s: %s", e.Code, e.Message)
}

// IsNondeterminismDetected reports whether err is an Error raised by the
// nondeterminism guard tripping in fail mode.
func IsNondeterminismDetected(err error) bool {
	re, ok := err.(*Error)
	return ok && re.Code == "NONDETERMINISM_DETECTED"
}

// AlignmentError reports that hybrid replay's strict alignment check
// failed: the two runs don't have the same step count, or their step
// types differ at some aligned index.
type AlignmentError struct {
	Message string
}

func (e *AlignmentError) Error() string {
	return "replay: hybrid alignment: " + e.Message
}
