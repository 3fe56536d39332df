package models

import (
	"encoding"
	"fmt"
	"strings"
)

// Rating is the learner's self-reported recall quality for one review.
type Rating int

const (
	RatingAgain Rating = iota + 1 // forgot it, drill again almost immediately
	RatingHard
	RatingGood
	RatingEasy
)

var ratingNames = [...]string{
	RatingAgain: "again",
	RatingHard:  "hard",
	RatingGood:  "good",
	RatingEasy:  "easy",
}

var (
	_ fmt.Stringer             = Rating(0)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// Ratings lists every valid rating in ascending quality order.
var Ratings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

// IsValid reports whether r is one of the four literal ratings.
func (r Rating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// Quality maps the rating onto the SM-2 quality scale.
// AGAIN has no quality because it bypasses the ease factor model.
func (r Rating) Quality() int {
	switch r {
	case RatingHard:
		return 3
	case RatingGood:
		return 4
	case RatingEasy:
		return 5
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRating accepts a rating name (any case) or its number 1..4.
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range ratingNames {
		if i == 0 {
			continue
		}
		if name == s || fmt.Sprint(i) == s {
			return Rating(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}
