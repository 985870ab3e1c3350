package encapdoc

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorKind classifies a failed run. Each kind has a stable exit code.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUsage
	KindIOFailure
	KindMalformedInput
	KindSeriesContextUnavailable
	KindDataConflict
	KindInvalidIdentifier
	KindUnknownAttribute
	KindPayloadTooLarge
	KindPersistFailure
	KindInternal
)

// Sentinels, one per kind. Match with errors.Is.
var (
	ErrUsage                    = errors.New("invalid configuration")
	ErrIOFailure                = errors.New("cannot read input")
	ErrMalformedInput           = errors.New("malformed input")
	ErrSeriesContextUnavailable = errors.New("series context unavailable")
	ErrDataConflict             = errors.New("conflicting values")
	ErrInvalidIdentifier        = errors.New("invalid identifier")
	ErrUnknownAttribute         = errors.New("unknown attribute")
	ErrPayloadTooLarge          = errors.New("payload too large")
	ErrPersistFailure           = errors.New("cannot write output")
)

var kinds = []struct {
	err  error
	kind ErrorKind
	code int
	name string
}{
	{ErrUsage, KindUsage, 1, "Usage"},
	{ErrIOFailure, KindIOFailure, 20, "IOFailure"},
	{ErrMalformedInput, KindMalformedInput, 22, "MalformedInput"},
	{ErrSeriesContextUnavailable, KindSeriesContextUnavailable, 23, "SeriesContextUnavailable"},
	{ErrDataConflict, KindDataConflict, 24, "DataConflict"},
	{ErrInvalidIdentifier, KindInvalidIdentifier, 25, "InvalidIdentifier"},
	{ErrUnknownAttribute, KindUnknownAttribute, 26, "UnknownAttribute"},
	{ErrPayloadTooLarge, KindPayloadTooLarge, 27, "PayloadTooLarge"},
	{ErrPersistFailure, KindPersistFailure, 40, "PersistFailure"},
}

// exit code for errors outside the known kinds
const internalExitCode = 70

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInternal:
		return "Internal"
	}
	for _, e := range kinds {
		if e.kind == k {
			return e.name
		}
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// KindOf classifies err; nil is KindNone
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, e := range kinds {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindInternal
}

// ExitCode maps err to the process exit status
func ExitCode(err error) int {
	k := KindOf(err)
	switch k {
	case KindNone:
		return 0
	case KindInternal:
		return internalExitCode
	}
	for _, e := range kinds {
		if e.kind == k {
			return e.code
		}
	}
	return internalExitCode
}

// ConflictError reports two sources disagreeing on one field
type ConflictError struct {
	Field          Field
	Existing       string
	ExistingSource Source
	Incoming       string
	IncomingSource Source
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting values for %s: %q from %s, %q from %s",
		e.Field, e.Existing, e.ExistingSource, e.Incoming, e.IncomingSource)
}

// Unwrap makes every ConflictError match ErrDataConflict
func (e *ConflictError) Unwrap() error {
	return ErrDataConflict
}

// mark tags cause with a kind sentinel and prefixes the message
func mark(cause, kind error, format string, args ...interface{}) error {
	return errors.Wrapf(errors.Mark(cause, kind), format, args...)
}
