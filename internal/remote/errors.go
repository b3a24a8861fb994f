// Package remote classifies failures coming back from the catalog backend.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

type Kind int

const (
	Unknown Kind = iota
	// Transport failures mean the backend could not be reached.
	Transport
	// Application failures are answers from the backend: validation,
	// authorization, not found, conflicts.
	Application
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Application:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every repository call.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// networkSignatures are message fragments that identify a transport
// failure when the error carries no type information.
var networkSignatures = []string{
	"failed to fetch",
	"fetch failed",
	"networkerror",
	"network request failed",
	"econnrefused",
	"connection refused",
	"enotfound",
	"no such host",
	"network is unreachable",
	"host is unreachable",
	"connection reset",
	"i/o timeout",
}

// Wrap tags err with the kind it represents. A nil err stays nil and an
// err that is already a *Error is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	status := statusOf(err)
	return &Error{
		Op:     op,
		Kind:   classify(err, status),
		Status: status,
		Err:    err,
	}
}

func classify(err error, status int) Kind {
	switch status {
	case 502, 503, 504:
		return Transport
	}
	if status >= 400 {
		return Application
	}
	if isTransportType(err) || matchesSignature(err) {
		return Transport
	}
	return Unknown
}

// KindOf reports how err should be treated. Typed errors decide for
// themselves; anything else is matched against known network messages.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if isTransportType(err) || matchesSignature(err) {
		return Transport
	}
	return Unknown
}

func IsTransport(err error) bool {
	return KindOf(err) == Transport
}

// StatusOf returns the backend HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// statusOf is kivik.HTTPStatus without the 500 default for untyped errors.
func statusOf(err error) int {
	var coder interface{ HTTPStatus() int }
	if errors.As(err, &coder) {
		return coder.HTTPStatus()
	}
	return 0
}

func isTransportType(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func matchesSignature(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, sig := range networkSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
