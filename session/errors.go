package session

import (
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	// ErrSessionClosed is returned by every operation of a closed Session.
	ErrSessionClosed = errors.New("livesql: session closed")
	// ErrObservationUnsupported is returned by Observe if the linked SQLite
	// library cannot report the tables a statement reads from.
	ErrObservationUnsupported = errors.New("livesql: SQLite was compiled with SQLITE_OMIT_AUTHORIZATION; queries cannot be observed")
)

// ErrorKind classifies an *Error.
type ErrorKind int

const (
	OpenFailure ErrorKind = iota + 1
	CloseFailure
	PrepareFailure
	MissingParameter
	BindFailure
	StepFailure
	UnexpectedRows
	DecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case OpenFailure:
		return "open failed"
	case CloseFailure:
		return "close failed"
	case PrepareFailure:
		return "prepare failed"
	case MissingParameter:
		return "missing parameter"
	case BindFailure:
		return "bind failed"
	case StepFailure:
		return "step failed"
	case UnexpectedRows:
		return "write returned rows"
	case DecodeFailure:
		return "decode failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a failure of a Session operation. Fields other than Kind are
// populated where they apply.
type Error struct {
	Kind ErrorKind
	// Code is the SQLite result code of the failure.
	Code sqlite3.ErrNo
	// SQL is the offending statement text.
	SQL string
	// Path is the database path of an OpenFailure.
	Path string
	// Param is the argument of a MissingParameter, the placeholder of a
	// BindFailure, or the column of a DecodeFailure.
	Param string
	// Rows are the rows returned by a statement passed to Write.
	Rows []Row
	// Err is the underlying driver error, if any.
	Err error
}

// Sentinels for use with errors.Is, which matches an *Error by Kind.
var (
	ErrOpenFailure      = &Error{Kind: OpenFailure}
	ErrCloseFailure     = &Error{Kind: CloseFailure}
	ErrPrepareFailure   = &Error{Kind: PrepareFailure}
	ErrMissingParameter = &Error{Kind: MissingParameter}
	ErrBindFailure      = &Error{Kind: BindFailure}
	ErrStepFailure      = &Error{Kind: StepFailure}
	ErrUnexpectedRows   = &Error{Kind: UnexpectedRows}
	ErrDecodeFailure    = &Error{Kind: DecodeFailure}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("livesql: ")
	b.WriteString(e.Kind.String())

	if e.Code != 0 {
		fmt.Fprintf(&b, " (%s)", e.Code.Error())
	}
	switch e.Kind {
	case OpenFailure:
		fmt.Fprintf(&b, " opening %q", e.Path)
	case MissingParameter:
		fmt.Fprintf(&b, " %q", e.Param)
	case BindFailure:
		if e.Param != "" {
			fmt.Fprintf(&b, " for parameter %q", e.Param)
		}
	case UnexpectedRows:
		fmt.Fprintf(&b, " %v", e.Rows)
	case DecodeFailure:
		fmt.Fprintf(&b, " for column %q", e.Param)
	}
	if e.SQL != "" {
		fmt.Fprintf(&b, ": `%s`", e.SQL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error { return e.Err }

// Is matches |target| if it's an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t, ok = target.(*Error)
	return ok && t.Kind == e.Kind
}

// codeOf extracts the primary SQLite result code of a driver error.
func codeOf(err error) sqlite3.ErrNo {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
