package gcmutility

import "fmt"

// Outcome tags a Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "error"
}

// Result is the single outcome of a registration attempt.
//
// On success Token is set and Err is nil. On error Err is non-nil; Token may
// still be set when the endpoint issued a token that could not be persisted.
type Result struct {
	AttemptID string
	Outcome   Outcome
	Token     string
	Cached    bool
	Err       error
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

// Message is the human-readable error message, empty on success.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r Result) String() string {
	if r.OK() {
		return fmt.Sprintf("attempt %s: success (cached=%t)", r.AttemptID, r.Cached)
	}
	return fmt.Sprintf("attempt %s: error: %v", r.AttemptID, r.Err)
}

// State is the position of an attempt in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateCheckingService
	StateRejected
	StateCachedHit
	StateRegistering
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingService:
		return "checking-service"
	case StateRejected:
		return "rejected"
	case StateCachedHit:
		return "cached-hit"
	case StateRegistering:
		return "registering"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateCachedHit, StateSucceeded, StateFailed:
		return true
	default:
		return false
	}
}

// Handler receives the notifications of one attempt. OnPreRegister fires
// only when a network registration is about to start. Exactly one of
// OnPostRegister or OnError fires per attempt.
type Handler interface {
	OnPreRegister()
	OnPostRegister(token string)
	OnError(message string)
}

// HandlerFuncs implements Handler with optional functions.
type HandlerFuncs struct {
	PreRegister  func()
	PostRegister func(token string)
	Error        func(message string)
}

func (h HandlerFuncs) OnPreRegister() {
	if h.PreRegister != nil {
		h.PreRegister()
	}
}

func (h HandlerFuncs) OnPostRegister(token string) {
	if h.PostRegister != nil {
		h.PostRegister(token)
	}
}

func (h HandlerFuncs) OnError(message string) {
	if h.Error != nil {
		h.Error(message)
	}
}
