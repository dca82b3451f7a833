// Package ierrors defines the engine's error taxonomy (§7): a closed set of
// Kind values, each wrapping an underlying cause with enough context for the
// shell layer to render a diagnostic and a suggested remediation.
package ierrors

import (
	"fmt"
	"time"
)

// Kind is the engine's error-kind taxonomy (§7). It names a category, not
// a concrete Go type — every Error below carries one.
type Kind string

const (
	KindParse             Kind = "parse_error"
	KindCompaction        Kind = "compaction_error"
	KindIndex             Kind = "index_error"
	KindNotFound          Kind = "not_found"
	KindCapabilityDenied  Kind = "capability_denied"
	KindTimeout           Kind = "timeout"
	KindResourceExhausted Kind = "resource_exhausted"
	KindCancelled         Kind = "cancelled"
	KindInternal          Kind = "internal"
)

// recoverableByDefault records which kinds are recoverable absent an
// explicit override (ParseError/CompactionError/IndexError/NotFound/Timeout are;
// CapabilityDenied/ResourceExhausted/Cancelled/Internal are not).
var recoverableByDefault = map[Kind]bool{
	KindParse:      true,
	KindCompaction: true,
	KindIndex:      true,
	KindNotFound:   true,
	KindTimeout:    true,
}

// Error is the engine's structured error: a Kind, the failing operation, an
// optional remediation hint, and the wrapped cause.
type Error struct {
	Kind        Kind
	Operation   string
	Invariant   string // the failing invariant, when Kind == KindInternal
	Remediation string // suggested fix, when known (e.g. "switch to Build mode")
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// New constructs an Error for op, defaulting Recoverable from Kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{
		Kind:        kind,
		Operation:   op,
		Underlying:  cause,
		Timestamp:   time.Now(),
		Recoverable: recoverableByDefault[kind],
	}
}

// WithRemediation attaches a human-readable suggested fix.
func (e *Error) WithRemediation(msg string) *Error {
	e.Remediation = msg
	return e
}

// WithInvariant names the invariant an Internal error violated.
func (e *Error) WithInvariant(inv string) *Error {
	e.Invariant = inv
	return e
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failed", e.Kind, e.Operation)
	if e.Underlying != nil {
		msg += fmt.Sprintf(": %v", e.Underlying)
	}
	if e.Invariant != "" {
		msg += fmt.Sprintf(" (invariant: %s)", e.Invariant)
	}
	if e.Remediation != "" {
		msg += fmt.Sprintf(" — %s", e.Remediation)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

// IsRecoverable reports whether the caller may proceed or retry.
func (e *Error) IsRecoverable() bool { return e.Recoverable }

// NotFound is a convenience constructor: queries that match nothing return
// this rather than a nil result plus error, so callers can distinguish
// "no error, empty result" from a failure (§8 boundary behavior).
func NotFound(op string) *Error {
	return New(KindNotFound, op, nil)
}

// CapabilityDenied reports a tool blocked by the mode/allowlist gate (§4.9).
func CapabilityDenied(tool string, mode interface{ String() string }) *Error {
	e := New(KindCapabilityDenied, "tool_invocation", fmt.Errorf("tool %q not permitted", tool))
	if mode != nil {
		e.WithRemediation(fmt.Sprintf("switch out of %s mode or adjust the agent's tool allowlist", mode.String()))
	}
	return e
}
