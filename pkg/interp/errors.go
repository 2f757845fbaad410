package interp

import (
	"fmt"

	"undag/pkg/graph"
)

// Kind classifies why a run terminated abnormally. Every Kind is fatal:
// UnDAG has no in-language exception handling to recover from one.
type Kind string

const (
	KindLoadError      Kind = "LoadError"
	KindLexError       Kind = "LexError"
	KindParseError     Kind = "ParseError"
	KindArityError     Kind = "ArityError"
	KindTypeError      Kind = "TypeError"
	KindNameError      Kind = "NameError"
	KindTagError       Kind = "TagError"
	KindRoutingError   Kind = "RoutingError"
	KindGraphError     Kind = "GraphError"
	KindDivisionByZero Kind = "DivisionByZero"
	KindIOError        Kind = "IOError"
)

// Error is what the driver and evaluator return on failure. It carries
// enough to produce the diagnostic spec §7 requires: the error kind, the
// offending commit's identity and message, and the underlying cause.
type Error struct {
	Kind          Kind
	Commit        graph.CommitID
	CommitMessage string
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.Commit == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: commit %s %q: %s", e.Kind, e.Commit, e.CommitMessage, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// newErr builds an *Error with no commit context yet attached; the driver
// fills in Commit as it propagates a step failure upward.
func newErr(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func errf(kind Kind, format string, args ...any) *Error {
	return newErr(kind, fmt.Errorf(format, args...))
}

// NewLoadError wraps a failure to open or enumerate a repository (before
// there is any commit to attach as context) as a LoadError.
func NewLoadError(err error) *Error {
	return newErr(KindLoadError, err)
}

// withCommit attaches commit context — identity and instruction text, per
// spec §7 — to err, tagging it as an internal ParseError if it isn't
// already one of ours.
func withCommit(err error, commit graph.CommitID, message string) error {
	if err == nil {
		return nil
	}
	ie, ok := err.(*Error)
	if !ok {
		ie = &Error{Kind: KindParseError, Err: err, Message: err.Error()}
	}
	return &Error{Kind: ie.Kind, Commit: commit, CommitMessage: message, Message: ie.Message, Err: ie}
}
