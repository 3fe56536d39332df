package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResume is matched by every ResumeError.
	ErrInvalidResume = errors.New("invalid resume input")
	// ErrInvalidBaseURL is returned when a share link cannot be built on the given base.
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// Kind classifies a rejected resume input.
type Kind int

const (
	KindEmptyInput Kind = iota + 1
	KindMalformedURL
	KindMalformedCode
	KindUnsupportedVersion
	KindNoContent
	KindBadProgress
	KindUnknownTheme
	KindUnknownCard
	KindCatalogMismatch
)

var kindNames = map[Kind]string{
	KindEmptyInput:         "empty input",
	KindMalformedURL:       "malformed link",
	KindMalformedCode:      "malformed save code",
	KindUnsupportedVersion: "unsupported save code version",
	KindNoContent:          "nothing to restore",
	KindBadProgress:        "unreadable progress",
	KindUnknownTheme:       "unknown theme",
	KindUnknownCard:        "unknown card",
	KindCatalogMismatch:    "card catalog has changed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ResumeError is the single error type surfaced when restoring from a link or save code.
// Field names the parameter at fault, if any.
type ResumeError struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *ResumeError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidResume, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidResume, msg)
}

func (e *ResumeError) Unwrap() error {
	return e.Err
}

func (e *ResumeError) Is(target error) bool {
	return target == ErrInvalidResume
}

func resumeErr(kind Kind, field string, err error) *ResumeError {
	return &ResumeError{Kind: kind, Field: field, Err: err}
}
