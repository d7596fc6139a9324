package discovery

import (
	"fmt"
	"strings"
)

// Error types for discovery sessions

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeTransport indicates a socket bind/send failure (fatal to the session)
	ErrTypeTransport ErrorType = iota
	// ErrTypeMalformedPayload indicates a reply that is not a usable SOAP probe match
	ErrTypeMalformedPayload
	// ErrTypeUnresolvable indicates a probe match without a usable service address
	ErrTypeUnresolvable
)

// WrongMessagePrefix starts the message of every malformed payload error
const WrongMessagePrefix = "Wrong SOAP message"

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeMalformedPayload:
		return WrongMessagePrefix
	case ErrTypeUnresolvable:
		return "Unresolvable Device"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ProbeError represents an error that occurred during a discovery session
type ProbeError struct {
	Type    ErrorType // Category of error
	Op      string    // Socket operation that failed (transport errors)
	Source  string    // Remote address of the offending datagram
	Message string    // Human-readable detail
	Payload []byte    // Verbatim datagram (payload errors)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface.
// Malformed payload errors always begin with WrongMessagePrefix.
func (e *ProbeError) Error() string {
	var b strings.Builder

	switch e.Type {
	case ErrTypeTransport:
		b.WriteString("transport error")
		if e.Op != "" {
			b.WriteString(" during " + e.Op)
		}
	default:
		b.WriteString(e.Type.String())
		if e.Source != "" {
			b.WriteString(" from " + e.Source)
		}
	}

	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Type == ErrTypeTransport && e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// RawPayload returns the offending datagram as text
func (e *ProbeError) RawPayload() string {
	return string(e.Payload)
}

// IsFatal reports whether the error ended the session
func (e *ProbeError) IsFatal() bool {
	return e.Type == ErrTypeTransport
}

// ResponseErrors collects the non-fatal per-datagram errors of one session.
// It is returned alongside the devices that were found.
type ResponseErrors struct {
	Errors []*ProbeError
}

// Error implements the error interface
func (e *ResponseErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no response errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d bad responses, first: %s", len(e.Errors), e.Errors[0].Error())
	}
}

// Unwrap exposes each per-datagram error to errors.Is / errors.As
func (e *ResponseErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

func transportError(op, target string, err error) *ProbeError {
	return &ProbeError{
		Type:    ErrTypeTransport,
		Op:      op,
		Message: target,
		Err:     err,
	}
}
