package api

import (
	"errors"
	"fmt"
)

// Kind separates failures that never produced a usable response from failures
// the service reported itself.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the single failure shape returned by every Client operation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int    // HTTP status, 0 when no response arrived
	Message string // human-readable: the server's error text or a generic fallback
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Message extracts the user-facing text from any error returned by the client.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransport
}

func IsApplication(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindApplication
}

// fallbackMessages are shown when the service gave no error text.
var fallbackMessages = map[string]string{
	OpIntake:      "Failed to submit asset. Please try again.",
	OpListAssets:  "Failed to load assets",
	OpAssetDetail: "Failed to load asset details",
	OpVerify:      "Failed to verify asset",
	OpTokenize:    "Failed to tokenize asset",
	OpStats:       "Failed to load stats",
	OpHealth:      "Service unavailable",
}

func fallback(op string) string {
	if m, ok := fallbackMessages[op]; ok {
		return m
	}
	return "Request failed"
}
