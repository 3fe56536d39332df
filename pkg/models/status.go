package models

import (
	"encoding"
	"fmt"
	"strings"
)

// Status is the coarse lifecycle bucket of a card.
// The numeric value doubles as the status index of the compact progress format.
type Status int

const (
	StatusNew Status = iota
	StatusLearning
	StatusReview
	StatusMastered
)

var statusNames = [...]string{
	StatusNew:      "NEW",
	StatusLearning: "LEARNING",
	StatusReview:   "REVIEW",
	StatusMastered: "MASTERED",
}

var (
	_ fmt.Stringer             = Status(0)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// StatusCount is the number of known statuses.
const StatusCount = len(statusNames)

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	return s >= StatusNew && s <= StatusMastered
}

func (s Status) String() string {
	if s.IsValid() {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus converts a status label into a Status.
func ParseStatus(label string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(label))
	for i, name := range statusNames {
		if name == upper {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, label)
}

// StatusFromIndex resolves a compact status index. Out of range indices fall back to NEW.
func StatusFromIndex(i int) Status {
	s := Status(i)
	if !s.IsValid() {
		return StatusNew
	}
	return s
}
