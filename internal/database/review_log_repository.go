package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/musclecards/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ReviewLogRepository handles database operations for review history
type ReviewLogRepository struct {
	db *sqlx.DB
}

// NewReviewLogRepository creates a new repository instance
func NewReviewLogRepository(db *sqlx.DB) *ReviewLogRepository {
	return &ReviewLogRepository{db: db}
}

// Append inserts a new review entry and fills in its ID
func (r *ReviewLogRepository) Append(ctx context.Context, entry *models.ReviewLog) error {
	if entry.ReviewedAt.IsZero() {
		entry.ReviewedAt = time.Now()
	}
	entry.ReviewedAt = entry.ReviewedAt.UTC()

	query := `
		INSERT INTO review_log (card_id, rating, interval_days, ease_factor, reviewed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	args := []interface{}{entry.CardID, int(entry.Rating), entry.IntervalDays, entry.EaseFactor, entry.ReviewedAt}

	// PostgreSQL has no LastInsertId
	if isPostgres(r.db) {
		err := r.db.QueryRowxContext(ctx, r.db.Rebind(query+" RETURNING id"), args...).Scan(&entry.ID)
		if err != nil {
			return fmt.Errorf("failed to append review: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to append review: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get review id: %w", err)
	}
	entry.ID = id
	return nil
}

// CountByRating returns how many reviews were logged per rating
func (r *ReviewLogRepository) CountByRating(ctx context.Context) (map[models.Rating]int, error) {
	var rows []struct {
		Rating int `db:"rating"`
		Count  int `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT rating, COUNT(*) AS count FROM review_log GROUP BY rating`); err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}

	counts := make(map[models.Rating]int, len(rows))
	for _, row := range rows {
		counts[models.Rating(row.Rating)] = row.Count
	}
	return counts, nil
}

// CountSince returns the number of reviews logged at or after since
func (r *ReviewLogRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM review_log WHERE reviewed_at >= ?`)
	if err := r.db.GetContext(ctx, &count, query, since.UTC()); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// Recent returns the latest reviews, newest first
func (r *ReviewLogRepository) Recent(ctx context.Context, limit int) ([]models.ReviewLog, error) {
	var entries []models.ReviewLog
	query := r.db.Rebind(`
		SELECT id, card_id, rating, interval_days, ease_factor, reviewed_at
		FROM review_log
		ORDER BY reviewed_at DESC, id DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent reviews: %w", err)
	}
	return entries, nil
}

// Clear removes the whole review history
func (r *ReviewLogRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM review_log`); err != nil {
		return fmt.Errorf("failed to clear review log: %w", err)
	}
	return nil
}
