// Package ruleerrors implements the four-way error classification: rule,
// protocol, transient and fatal errors. Rule and protocol errors carry an
// error code so callers (and the dependency manager) can switch on the
// failure kind without string matching, following the familiar
// common.RuleError idiom; transient and fatal errors carry no code.
package ruleerrors

import "github.com/pkg/errors"

// RuleErrorCode enumerates the rule-error kinds.
type RuleErrorCode int

const (
	ErrKnownInvalid RuleErrorCode = iota
	ErrParentUnknown
	ErrInvalidAncestor
	ErrBadTimestamp
	ErrBadBits
	ErrBadParents
	ErrMergesetTooLarge
	ErrBadMerkleRoot
	ErrBadGHOSTDAGData
	ErrProofOfWorkFailed
	ErrPruningPointMismatch
	ErrFinalityViolation
	ErrBadBlueWorkOrScore
	ErrBadDAAScore
)

// RuleError rejects a header; the peer that sent it may be punished and the
// header is durably marked Invalid in the same batch.
type RuleError struct {
	Code    RuleErrorCode
	Message string
	cause   error
}

func (e *RuleError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *RuleError) Unwrap() error { return e.cause }

// NewRuleError constructs a RuleError, matching common.NewRuleError's
// call shape.
func NewRuleError(code RuleErrorCode, message string) *RuleError {
	return &RuleError{Code: code, Message: message}
}

// WrapRuleError wraps an underlying error (typically from a store lookup)
// as a RuleError without losing the original cause.
func WrapRuleError(code RuleErrorCode, message string, cause error) *RuleError {
	return &RuleError{Code: code, Message: message, cause: cause}
}

// AsRuleError reports whether err is (or wraps) a RuleError, and returns it.
func AsRuleError(err error) (*RuleError, bool) {
	var ruleErr *RuleError
	ok := errors.As(err, &ruleErr)
	return ruleErr, ok
}

// ProtocolErrorCode enumerates the protocol-error kinds.
type ProtocolErrorCode int

const (
	ErrMalformedMessage ProtocolErrorCode = iota
	ErrUnexpectedMessage
	ErrTimeout
	ErrMisalignedPruningProof
	ErrTrustedDataMismatch
	ErrSinkNeverReceived
	ErrRelayBlockNeverReceived
)

// ProtocolError ends a peer's session; any in-flight IBD is cancelled.
type ProtocolError struct {
	Code    ProtocolErrorCode
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

// NewProtocolError constructs a ProtocolError.
func NewProtocolError(code ProtocolErrorCode, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

// TransientError is absorbed by the connection manager with exponential
// backoff rather than surfaced to the user as a failure.
type TransientError struct {
	Message string
	cause   error
}

func (e *TransientError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *TransientError) Unwrap() error { return e.cause }

// NewTransientError wraps a lower-level error (connection refused, DNS
// failure, address unreachable) as transient.
func NewTransientError(message string, cause error) *TransientError {
	return &TransientError{Message: message, cause: cause}
}

// FatalError halts the process; callers should treat receipt of one as
// "log and exit", never "retry".
type FatalError struct {
	Message string
	cause   error
}

func (e *FatalError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *FatalError) Unwrap() error { return e.cause }

// NewFatalError wraps a storage-engine or invariant-violation error.
func NewFatalError(message string, cause error) *FatalError {
	return &FatalError{Message: message, cause: cause}
}
