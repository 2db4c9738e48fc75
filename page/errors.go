package page

import "fmt"

// Kind identifies one of the error kinds surfaced by the core (§7).
type Kind string

const (
	KindPreprocess       Kind = "preprocess"
	KindRecognizer       Kind = "recognizer"
	KindRecognizerTimeout Kind = "recognizer_timeout"
	KindRegion           Kind = "region"
	KindAborted          Kind = "aborted"
	KindCache            Kind = "cache"
)

// Error wraps an underlying error with the Kind the pipeline uses to decide
// whether it is fatal (Preprocess, Recognizer, RecognizerTimeout) or
// swallowed-and-logged (Region, Aborted, Cache) per §7's propagation policy.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, page.ErrAborted) (etc.) match regardless of the
// wrapped cause, by comparing Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel markers for errors.Is comparisons; their Err field is unused.
var (
	ErrPreprocess        = &Error{Kind: KindPreprocess}
	ErrRecognizer        = &Error{Kind: KindRecognizer}
	ErrRecognizerTimeout = &Error{Kind: KindRecognizerTimeout}
	ErrRegion            = &Error{Kind: KindRegion}
	ErrAborted           = &Error{Kind: KindAborted}
	ErrCache             = &Error{Kind: KindCache}
)

// WrapError builds an *Error of the given kind, wrapping cause.
func WrapError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// IsFatal reports whether an error kind aborts the page per §7's
// propagation policy: only preprocessing and the initial whole-page
// recognizer call are fatal; everything else is caught stage-locally.
func IsFatal(kind Kind) bool {
	switch kind {
	case KindPreprocess, KindRecognizer, KindRecognizerTimeout:
		return true
	default:
		return false
	}
}
