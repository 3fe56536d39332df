package codec

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is matched by every DecodeError.
var ErrMalformedPayload = errors.New("malformed progress payload")

// Kind classifies why an entire payload could not be read.
type Kind int

const (
	KindEmpty    Kind = iota + 1 // nothing to decode
	KindEncoding                 // not valid base64
	KindSyntax                   // not valid JSON
	KindShape                    // valid JSON, but neither a record list nor a state object
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindEncoding:
		return "encoding"
	case KindSyntax:
		return "syntax"
	case KindShape:
		return "shape"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DecodeError reports a payload that yielded no progress at all.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMalformedPayload, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedPayload, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedPayload) hold for every DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// Reason explains why a single entry was left out of a result.
type Reason int

const (
	ReasonUnknownCard   Reason = iota + 1 // card id not in the catalog
	ReasonInvalidStatus                   // status is not one of the four labels
	ReasonNonFinite                       // NaN or infinite number
	ReasonNegative                        // negative streak
	ReasonArity                           // compact tuple without exactly seven elements
	ReasonIndexRange                      // catalog index outside the catalog
	ReasonMalformed                       // entry could not be parsed
)

var reasonNames = map[Reason]string{
	ReasonUnknownCard:   "unknown card",
	ReasonInvalidStatus: "invalid status",
	ReasonNonFinite:     "non-finite number",
	ReasonNegative:      "negative value",
	ReasonArity:         "wrong tuple arity",
	ReasonIndexRange:    "catalog index out of range",
	ReasonMalformed:     "malformed entry",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Skip describes one entry dropped while encoding or decoding.
// CardID is set when the entry could be attributed to a card, Index is the
// position of the entry in the input (-1 for map input).
type Skip struct {
	CardID string
	Index  int
	Reason Reason
}

func (s Skip) String() string {
	if s.CardID != "" {
		return fmt.Sprintf("%s: %s", s.CardID, s.Reason)
	}
	return fmt.Sprintf("entry %d: %s", s.Index, s.Reason)
}
