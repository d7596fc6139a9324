package discovery

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestProbeError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProbeError
		expected string
	}{
		{
			name: "malformed payload",
			err: &ProbeError{
				Type:    ErrTypeMalformedPayload,
				Source:  "10.0.0.9:3702",
				Message: "not well-formed XML",
			},
			expected: "Wrong SOAP message from 10.0.0.9:3702: not well-formed XML",
		},
		{
			name:     "malformed payload without source",
			err:      &ProbeError{Type: ErrTypeMalformedPayload},
			expected: "Wrong SOAP message",
		},
		{
			name: "unresolvable",
			err: &ProbeError{
				Type:    ErrTypeUnresolvable,
				Source:  "10.0.0.9:3702",
				Message: "no usable service address",
			},
			expected: "Unresolvable Device from 10.0.0.9:3702: no usable service address",
		},
		{
			name:     "transport",
			err:      transportError("send", "239.255.255.250:3702", errors.New("network is unreachable")),
			expected: "transport error during send: 239.255.255.250:3702 (caused by: network is unreachable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProbeError_Unwrap(t *testing.T) {
	pe := transportError("listen", "x", net.ErrClosed)
	if !errors.Is(pe, net.ErrClosed) {
		t.Error("errors.Is() did not find the wrapped error")
	}
	if !pe.IsFatal() {
		t.Error("transport errors must be fatal")
	}
	if (&ProbeError{Type: ErrTypeMalformedPayload}).IsFatal() {
		t.Error("payload errors must not be fatal")
	}
}

func TestProbeError_RawPayload(t *testing.T) {
	pe := &ProbeError{Type: ErrTypeMalformedPayload, Payload: []byte("lollipop")}
	if pe.RawPayload() != "lollipop" {
		t.Errorf("RawPayload() = %q", pe.RawPayload())
	}
}

func TestResponseErrors(t *testing.T) {
	first := &ProbeError{Type: ErrTypeMalformedPayload, Source: "a", Message: "empty payload"}
	second := &ProbeError{Type: ErrTypeUnresolvable, Source: "b"}

	single := &ResponseErrors{Errors: []*ProbeError{first}}
	if single.Error() != first.Error() {
		t.Errorf("Error() = %q, want %q", single.Error(), first.Error())
	}

	multi := &ResponseErrors{Errors: []*ProbeError{first, second}}
	if !strings.HasPrefix(multi.Error(), "2 bad responses") {
		t.Errorf("Error() = %q", multi.Error())
	}

	var pe *ProbeError
	if !errors.As(multi, &pe) || pe != first {
		t.Error("errors.As() should find the first ProbeError")
	}
	if !errors.Is(multi, second) {
		t.Error("errors.Is() should find the second ProbeError")
	}
}

func TestErrorType_String(t *testing.T) {
	if ErrTypeMalformedPayload.String() != WrongMessagePrefix {
		t.Errorf("ErrTypeMalformedPayload.String() = %q", ErrTypeMalformedPayload.String())
	}
	if ErrorType(42).String() != "ErrorType(42)" {
		t.Errorf("ErrorType(42).String() = %q", ErrorType(42).String())
	}
}
