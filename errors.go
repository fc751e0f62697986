package tvremote

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Sentinel errors for connection and handshake state.
var (
	ErrConnectFailure    = errors.New("unable to connect to the device")
	ErrDeviceUnreachable = errors.New("device did not power on")
	ErrAuthDenied        = errors.New("authorization denied by device")
	ErrAuthFailure       = errors.New("authorization timed out")
	ErrClosed            = errors.New("transport is closed")
	ErrSendFailure       = errors.New("send failed")
	ErrConnectionClosed  = errors.New("connection is closed")
	ErrNotConnected      = errors.New("remote is not connected")
	ErrGestureRunning    = errors.New("gesture sequence is running")
	ErrLoopRunning       = errors.New("receive loop already running")
	ErrLoopStuck         = errors.New("receive loop did not terminate")
)

// ConnectionError represents a failure to open the websocket endpoint.
// It matches ErrConnectFailure with errors.Is.
type ConnectionError struct {
	URL    string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.URL, e.Reason)
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectFailure
}

// ErrorKind classifies soft errors that are reported instead of returned.
type ErrorKind int

const (
	ErrParseFailure    ErrorKind = iota // inbound frame couldn't be decoded
	ErrDispatchTimeout                  // an expected event never arrived
	ErrDeviceOff                        // device looked switched off
	ErrProbeFailure                     // capability probe failed
	ErrTransportRead                    // receive loop stopped on a read error
	ErrPersistFailure                   // save hook returned an error
)

var errorKindNames = [...]string{
	ErrParseFailure:    "ErrParseFailure",
	ErrDispatchTimeout: "ErrDispatchTimeout",
	ErrDeviceOff:       "ErrDeviceOff",
	ErrProbeFailure:    "ErrProbeFailure",
	ErrTransportRead:   "ErrTransportRead",
	ErrPersistFailure:  "ErrPersistFailure",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// SDKError is a condition the remote could not deliver to a direct caller.
// The target device routinely sleeps, so most of these are expected.
type SDKError struct {
	Kind      ErrorKind
	Host      string
	Event     string // dispatch event, if known
	Cause     error
	Raw       []byte // raw frame (for parse failures)
	Timestamp time.Time
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (host=%s event=%s)", e.Kind, e.Cause, e.Host, e.Event)
	}
	return fmt.Sprintf("%s (host=%s event=%s)", e.Kind, e.Host, e.Event)
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ErrorHandler receives every soft error reported by a Remote.
type ErrorHandler func(SDKError)

// LogErrors returns an ErrorHandler that writes soft errors to logger.
func LogErrors(logger *slog.Logger) ErrorHandler {
	return func(e SDKError) {
		attrs := []any{
			slog.String("kind", e.Kind.String()),
			slog.String("host", e.Host),
		}
		if e.Event != "" {
			attrs = append(attrs, slog.String("event", e.Event))
		}
		if e.Cause != nil {
			attrs = append(attrs, slog.Any("error", e.Cause))
		}
		logger.Warn("tvremote", attrs...)
	}
}
