// Package failure defines the error taxonomy shared by the wait layer, the
// page objects and the step bindings.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so reports can show what went wrong without
// parsing messages.
type Kind string

const (
	// ElementNotFound means a wait was exhausted without resolving the element.
	ElementNotFound Kind = "ElementNotFound"
	// ElementNotInteractable means the element resolved but rejected the interaction.
	ElementNotInteractable Kind = "ElementNotInteractable"
	// WebDriverError wraps any lower-level automation driver fault.
	WebDriverError Kind = "WebDriverError"
	// UnexpectedState marks invariant violations, e.g. acting on a page that was never opened.
	UnexpectedState Kind = "UnexpectedState"
	// AssertionFailed is returned by verification steps whose expectation did not hold.
	AssertionFailed Kind = "AssertionFailed"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "enter username"
	Locator string // element description, empty when not element related
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Locator != "" {
		fmt.Fprintf(&b, " [%s]", e.Locator)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, &failure.Error{Kind: failure.ElementNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Locator == "" && t.Message == "" && t.Err == nil
}

// New creates a classified error without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports that locator never resolved for op.
func NotFound(op, locator string, err error) *Error {
	return &Error{Kind: ElementNotFound, Op: op, Locator: locator, Err: err}
}

// Assertionf builds an AssertionFailed error.
func Assertionf(format string, args ...any) *Error {
	return &Error{Kind: AssertionFailed, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
