package models

import "errors"

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidRating = errors.New("invalid rating")
	ErrEmptyCardID   = errors.New("card id is empty")
	ErrDuplicateCard = errors.New("duplicate card id")
)
