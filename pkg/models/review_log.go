package models

import "time"

// ReviewLog records a single rating and the schedule it produced
type ReviewLog struct {
	ID           int64     `json:"id" db:"id"`
	CardID       string    `json:"card_id" db:"card_id"`
	Rating       Rating    `json:"rating" db:"rating"`
	IntervalDays float64   `json:"interval_days" db:"interval_days"`
	EaseFactor   float64   `json:"ease_factor" db:"ease_factor"`
	ReviewedAt   time.Time `json:"reviewed_at" db:"reviewed_at"`
}
