package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// DefaultEaseFactor is the ease factor of a card that was never reviewed.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor applied after every ease update.
	MinEaseFactor = 1.3
	// MaxIntervalDays caps every scheduled interval.
	MaxIntervalDays = 365
)

// ClampInterval bounds an interval in days to [0, MaxIntervalDays].
// NaN becomes 0.
func ClampInterval(days float64) float64 {
	if !(days > 0) {
		return 0
	}
	return math.Min(days, MaxIntervalDays)
}

// CardState is the scheduling state of a single card
type CardState struct {
	CardID         string    `json:"cardId"`
	Status         Status    `json:"status"`
	IntervalDays   float64   `json:"intervalDays"`
	EaseFactor     float64   `json:"easeFactor"`
	DueAt          time.Time `json:"dueAt"`
	LastReviewedAt time.Time `json:"lastReviewedAt"` // zero if never reviewed
	Streak         int       `json:"streak"`
}

// NewCardState returns the defaults for a card seen for the first time.
// A fresh card is due immediately.
func NewCardState(cardID string, now time.Time) CardState {
	return CardState{
		CardID:     cardID,
		Status:     StatusNew,
		EaseFactor: DefaultEaseFactor,
		DueAt:      now,
	}
}

// IsDue reports whether the card is eligible for review at now.
func (c CardState) IsDue(now time.Time) bool {
	return !c.DueAt.After(now)
}

// Reviewed reports whether the card has been rated at least once.
func (c CardState) Reviewed() bool {
	return !c.LastReviewedAt.IsZero()
}

// cardStateJSON is the full-precision wire form. Timestamps are epoch milliseconds, 0 for unset.
type cardStateJSON struct {
	CardID         string  `json:"cardId,omitempty"`
	Status         Status  `json:"status"`
	IntervalDays   float64 `json:"intervalDays"`
	EaseFactor     float64 `json:"easeFactor"`
	DueAt          int64   `json:"dueAt"`
	LastReviewedAt int64   `json:"lastReviewedAt"`
	Streak         int     `json:"streak"`
}

// MarshalJSON writes the full-precision form used for local persistence and legacy payloads.
func (c CardState) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardStateJSON{
		CardID:         c.CardID,
		Status:         c.Status,
		IntervalDays:   c.IntervalDays,
		EaseFactor:     c.EaseFactor,
		DueAt:          toMillis(c.DueAt),
		LastReviewedAt: toMillis(c.LastReviewedAt),
		Streak:         c.Streak,
	})
}

// UnmarshalJSON reads the full-precision form.
func (c *CardState) UnmarshalJSON(data []byte) error {
	var raw cardStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode card state: %w", err)
	}
	*c = CardState{
		CardID:         raw.CardID,
		Status:         raw.Status,
		IntervalDays:   raw.IntervalDays,
		EaseFactor:     raw.EaseFactor,
		DueAt:          fromMillis(raw.DueAt),
		LastReviewedAt: fromMillis(raw.LastReviewedAt),
		Streak:         raw.Streak,
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
