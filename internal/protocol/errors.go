package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is matched by every *MalformedPayloadError via errors.Is
var ErrMalformedPayload = errors.New("malformed payload")

// MalformedPayloadError reports a datagram that is not a usable SOAP
// probe match. Raw holds the payload exactly as received.
type MalformedPayloadError struct {
	Reason string // What was wrong with the payload
	Raw    []byte // Original datagram bytes
	Err    error  // Underlying XML error (if any)
}

// Error implements the error interface
func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

// Unwrap returns the underlying XML error
func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedPayload) succeed
func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// Payload returns the offending datagram as text
func (e *MalformedPayloadError) Payload() string {
	return string(e.Raw)
}

func malformed(raw []byte, err error, format string, args ...any) *MalformedPayloadError {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &MalformedPayloadError{
		Reason: fmt.Sprintf(format, args...),
		Raw:    cp,
		Err:    err,
	}
}
