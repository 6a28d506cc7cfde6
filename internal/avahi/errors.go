package avahi

import (
	"errors"
	"fmt"
)

// ConnectError means the daemon could not be reached, or the connection was lost.
// Fatal: the listener stops.
type ConnectError struct {
	// Lost is set when an established session went away
	Lost bool
	// Err is the underlying bus error
	Err error
}

func (e *ConnectError) Error() string {
	if e.Lost {
		return fmt.Sprintf("connection to the Avahi daemon lost: %v", e.Err)
	}
	return fmt.Sprintf("failed to connect to the Avahi daemon on the system bus: %v\n"+
		"Hint: check that avahi-daemon is running (systemctl status avahi-daemon)", e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// BrowseError means the daemon refused or aborted the browse session.
// Fatal: the listener stops.
type BrowseError struct {
	// ServiceType is the service type being browsed
	ServiceType string
	// Err is the underlying error, or the daemon's failure message
	Err error
}

func (e *BrowseError) Error() string {
	return fmt.Sprintf("browse session for %q failed: %v", e.ServiceType, e.Err)
}

func (e *BrowseError) Unwrap() error {
	return e.Err
}

// SubscribeError means a browser event stream could not be attached.
// Fatal: the listener stops.
type SubscribeError struct {
	// Member is the signal name (ItemNew, ItemRemove, ...)
	Member string
	Err    error
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("failed to subscribe to %s events: %v", e.Member, e.Err)
}

func (e *SubscribeError) Unwrap() error {
	return e.Err
}

// DecodeError describes a signal whose body does not have the expected shape.
// The event is skipped.
type DecodeError struct {
	Member    string
	Interface string
	Path      string
	Signature string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed %s.%s signal on %s (signature %q): %v",
		e.Interface, e.Member, e.Path, e.Signature, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ResolveError means a single ResolveService call failed. The event is skipped.
type ResolveError struct {
	Name string
	Type string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve %q (%s): %v", e.Name, e.Type, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ends the listener rather than a single event
func IsFatal(err error) bool {
	var (
		connectErr   *ConnectError
		browseErr    *BrowseError
		subscribeErr *SubscribeError
	)
	return errors.As(err, &connectErr) || errors.As(err, &browseErr) || errors.As(err, &subscribeErr)
}
