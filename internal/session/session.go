// Package session applies ratings to the in-memory progress map and decides what to review next.
package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/example/musclecards/internal/spaced_repetition"
	"github.com/example/musclecards/pkg/models"
	"go.uber.org/zap"
)

//go:generate mockgen -source=session.go -destination=mock/session_mock.go

// ErrUnknownCard is returned for card ids that are not in the catalog.
var ErrUnknownCard = errors.New("unknown card")

// Saver persists the whole progress map. persistence.Gateway implements it.
type Saver interface {
	SaveStates(ctx context.Context, states map[string]models.CardState) error
	Clear(ctx context.Context) error
}

// ReviewLogger records answered reviews. database.ReviewLogRepository implements it.
type ReviewLogger interface {
	Append(ctx context.Context, entry *models.ReviewLog) error
}

// Stats summarizes the progress map at one instant.
type Stats struct {
	Total          int
	ByStatus       map[models.Status]int
	Due            int
	AverageEase    float64
	AverageStreak  float64
	NextDueAt      time.Time // zero when nothing is scheduled
	DaysToDeadline int       // -1 without a deadline
}

// Session owns the progress map of the single learner.
type Session struct {
	catalog *models.Catalog
	sm2     *spaced_repetition.SM2
	saver   Saver
	reviews ReviewLogger
	logger  *zap.Logger

	mu            sync.Mutex
	states        map[string]models.CardState
	deadline      *time.Time
	active        string
	lastPersistErr error
	persistFails  int
}

// Option configures a Session.
type Option func(*Session)

// WithSaver persists progress after every change.
func WithSaver(s Saver) Option {
	return func(sess *Session) { sess.saver = s }
}

// WithReviewLogger appends every answer to a review history.
func WithReviewLogger(l ReviewLogger) Option {
	return func(sess *Session) { sess.reviews = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(sess *Session) { sess.logger = l }
}

// WithScheduler replaces the default SM-2 settings.
func WithScheduler(sm *spaced_repetition.SM2) Option {
	return func(sess *Session) { sess.sm2 = sm }
}

// New creates a session over cat with the given initial states.
// States for cards outside the catalog are dropped.
func New(cat *models.Catalog, states map[string]models.CardState, opts ...Option) *Session {
	s := &Session{
		catalog: cat,
		sm2:     spaced_repetition.NewSM2(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.states, _ = s.sanitize(states)
	return s
}

func (s *Session) now() time.Time {
	if s.sm2.Now != nil {
		return s.sm2.Now()
	}
	return time.Now()
}

// Catalog returns the catalog the session schedules.
func (s *Session) Catalog() *models.Catalog {
	return s.catalog
}

// State returns the state of id, with NEW defaults for cards never seen.
func (s *Session) State(id string) (models.CardState, error) {
	if !s.catalog.Has(id) {
		return models.CardState{}, ErrUnknownCard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(id), nil
}

func (s *Session) stateLocked(id string) models.CardState {
	if st, ok := s.states[id]; ok {
		return st
	}
	return models.NewCardState(id, s.now())
}

// Answer applies rating to card id. The new state replaces the old one in a
// single step; saving and logging happen afterwards and their failures are
// logged, never returned and never undo the transition.
func (s *Session) Answer(ctx context.Context, id string, rating models.Rating) (models.CardState, error) {
	if !s.catalog.Has(id) {
		return models.CardState{}, ErrUnknownCard
	}
	if !rating.IsValid() {
		return models.CardState{}, models.ErrInvalidRating
	}

	s.mu.Lock()
	next := s.sm2.Review(s.stateLocked(id), rating, s.deadline)
	s.states[id] = next
	s.active = id
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)

	if s.reviews != nil {
		entry := &models.ReviewLog{
			CardID:       id,
			Rating:       rating,
			IntervalDays: next.IntervalDays,
			EaseFactor:   next.EaseFactor,
			ReviewedAt:   next.LastReviewedAt,
		}
		if err := s.reviews.Append(ctx, entry); err != nil {
			s.logger.Error("failed to log review", zap.String("card", id), zap.Error(err))
		}
	}
	return next, nil
}

func (s *Session) persist(ctx context.Context, snapshot map[string]models.CardState) {
	if s.saver == nil {
		return
	}
	err := s.saver.SaveStates(ctx, snapshot)
	s.recordPersist(err)
}

func (s *Session) recordPersist(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastPersistErr = nil
		return
	}
	s.lastPersistErr = err
	s.persistFails++
	s.logger.Error("failed to persist progress", zap.Int("failures", s.persistFails), zap.Error(err))
}

// LastPersistError returns the error of the latest save, nil if it succeeded.
func (s *Session) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPersistErr
}

// DueQueue returns due cards in review order, at most limit (limit <= 0 means all).
// Cards never seen count as due.
func (s *Session) DueQueue(limit int) []models.CardState {
	s.mu.Lock()
	all := make([]models.CardState, 0, s.catalog.Len())
	for _, id := range s.catalog.IDs() {
		all = append(all, s.stateLocked(id))
	}
	s.mu.Unlock()

	return spaced_repetition.NextDue(all, s.now(), limit)
}

// Import replaces the progress map with states, keeping only valid entries
// for catalog cards. It returns how many entries were dropped and persists the result.
func (s *Session) Import(ctx context.Context, states map[string]models.CardState) int {
	clean, dropped := s.sanitize(states)

	s.mu.Lock()
	s.states = clean
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("dropped imported states", zap.Int("count", dropped))
	}
	s.persist(ctx, snapshot)
	return dropped
}

func (s *Session) sanitize(states map[string]models.CardState) (map[string]models.CardState, int) {
	clean := make(map[string]models.CardState, len(states))
	dropped := 0
	for id, st := range states {
		if !s.catalog.Has(id) || !st.Status.IsValid() {
			dropped++
			continue
		}
		if math.IsNaN(st.EaseFactor) || math.IsInf(st.EaseFactor, 0) || math.IsNaN(st.IntervalDays) || math.IsInf(st.IntervalDays, 0) {
			dropped++
			continue
		}
		st.CardID = id
		st.EaseFactor = math.Max(models.MinEaseFactor, st.EaseFactor)
		st.IntervalDays = models.ClampInterval(st.IntervalDays)
		if st.Streak < 0 {
			st.Streak = 0
		}
		clean[id] = st
	}
	return clean, dropped
}

// Reset clears all progress, in memory and in storage.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.states = make(map[string]models.CardState)
	s.active = ""
	s.mu.Unlock()

	if s.saver == nil {
		return nil
	}
	err := s.saver.Clear(ctx)
	s.recordPersist(err)
	return err
}

// SetDeadline sets or, with nil, removes the exam date used to cap intervals.
func (s *Session) SetDeadline(deadline *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deadline == nil {
		s.deadline = nil
		return
	}
	d := *deadline
	s.deadline = &d
}

// Deadline returns a copy of the exam date, nil if none is set.
func (s *Session) Deadline() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deadline == nil {
		return nil
	}
	d := *s.deadline
	return &d
}

// Active returns the card the learner is working on, "" if none.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive selects the card the learner is working on.
func (s *Session) SetActive(id string) error {
	if id != "" && !s.catalog.Has(id) {
		return ErrUnknownCard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
	return nil
}

// Snapshot returns a copy of the progress map.
func (s *Session) Snapshot() map[string]models.CardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() map[string]models.CardState {
	out := make(map[string]models.CardState, len(s.states))
	for id, st := range s.states {
		out[id] = st
	}
	return out
}

// DueCount returns how many catalog cards are due at now.
func (s *Session) DueCount(now time.Time) int {
	return s.Stats(now).Due
}

// Stats counts every catalog card, including the ones never seen.
func (s *Session) Stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Total:          s.catalog.Len(),
		ByStatus:       make(map[models.Status]int, models.StatusCount),
		DaysToDeadline: -1,
	}
	var easeSum, streakSum float64
	for _, id := range s.catalog.IDs() {
		card, seen := s.states[id]
		if !seen {
			card = models.NewCardState(id, now)
		}
		st.ByStatus[card.Status]++
		easeSum += card.EaseFactor
		streakSum += float64(card.Streak)
		if card.IsDue(now) {
			st.Due++
		} else if st.NextDueAt.IsZero() || card.DueAt.Before(st.NextDueAt) {
			st.NextDueAt = card.DueAt
		}
	}
	if st.Total > 0 {
		st.AverageEase = easeSum / float64(st.Total)
		st.AverageStreak = streakSum / float64(st.Total)
	}
	if s.deadline != nil && s.deadline.After(now) {
		st.DaysToDeadline = int(math.Ceil(s.deadline.Sub(now).Hours() / 24))
	}
	return st
}
