package biometric

import (
	"fmt"
	"strings"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeDenied
	OutcomeUnavailable
	OutcomeTimedOut
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDenied:
		return "denied"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the result of one prompt. Reason is the platform's message and
// is empty on success.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Err maps a non-success outcome to its sentinel error, nil on success.
func (o Outcome) Err() error {
	var base error
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeDenied:
		base = ErrDenied
	case OutcomeUnavailable:
		base = ErrCapabilityUnavailable
	case OutcomeTimedOut:
		base = ErrTimedOut
	case OutcomeCancelled:
		base = ErrCancelled
	default:
		base = ErrDenied
	}
	if reason := strings.TrimSpace(o.Reason); reason != "" {
		return fmt.Errorf("%w: %s", base, reason)
	}
	return base
}

type Capability int

const (
	CapabilityUnknown Capability = iota
	CapabilityAvailable
	CapabilityUnavailable
)

func (c Capability) String() string {
	switch c {
	case CapabilityAvailable:
		return "available"
	case CapabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Verdict is the answer of a completed verification.
type Verdict int

const (
	VerdictDenied Verdict = iota
	VerdictVerified
)

func (v Verdict) String() string {
	if v == VerdictVerified {
		return "verified"
	}
	return "denied"
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Status describes the biometric setup without prompting the user.
type Status struct {
	Method     string     `json:"method" yaml:"method"`
	Capability Capability `json:"capability" yaml:"capability"`
	Registered bool       `json:"registered" yaml:"registered"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}
