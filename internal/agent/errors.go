package agent

import "errors"

// ValidationError reports a request the caller can fix: missing mentions,
// unknown agent names, empty prompts. The gateway maps it to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ErrUnknownAgent is returned when a request names an agent the roster does
// not have.
var ErrUnknownAgent = errors.New("unknown agent")
