package pipeline

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// ErrNoJobs means the grid produced nothing to persist. Callers treat it as
// a clean exit.
var ErrNoJobs = errors.New("no jobs found for any cell")

// Kind classifies a pipeline failure.
type Kind string

const (
	KindConfig    Kind = "config"
	KindScrape    Kind = "scrape"
	KindNormalize Kind = "normalize"
	KindPersist   Kind = "persist"
)

// Error is a pipeline failure carrying the stack where it was raised.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace returns the captured stack.
func (e *Error) StackTrace() []byte {
	return e.Stack
}

func newError(kind Kind, message string, err error) *Error {
	var stack []byte
	if err != nil {
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// ConfigError wraps a configuration problem found before the run starts.
func ConfigError(message string, err error) *Error {
	return newError(KindConfig, message, err)
}

// IsKind reports whether err is a pipeline Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}
