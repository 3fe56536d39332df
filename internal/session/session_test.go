package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	mock_session "github.com/example/musclecards/internal/session/mock"
	"github.com/example/musclecards/internal/spaced_repetition"
	"github.com/example/musclecards/pkg/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	cat, err := models.CatalogFromIDs("biceps", "triceps", "deltoid")
	require.NoError(t, err)
	return cat
}

func fixedClock() *spaced_repetition.SM2 {
	sm := spaced_repetition.NewSM2()
	sm.Now = func() time.Time { return testNow }
	return sm
}

func newTestSession(t *testing.T, states map[string]models.CardState, opts ...Option) *Session {
	t.Helper()
	return New(testCatalog(t), states, append([]Option{WithScheduler(fixedClock())}, opts...)...)
}

type reviewMatcher struct {
	cardID string
	rating models.Rating
}

func reviewOf(cardID string, rating models.Rating) gomock.Matcher {
	return reviewMatcher{cardID: cardID, rating: rating}
}

func (m reviewMatcher) Matches(x interface{}) bool {
	entry, ok := x.(*models.ReviewLog)
	return ok && entry.CardID == m.cardID && entry.Rating == m.rating && entry.ReviewedAt.Equal(testNow)
}

func (m reviewMatcher) String() string {
	return "review of " + m.cardID + " rated " + m.rating.String()
}

func TestSession_StateDefaults(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, nil)
	st, err := s.State("triceps")
	require.NoError(t, err)
	assert.Equal(t, models.NewCardState("triceps", testNow), st)

	_, err = s.State("gluteus")
	assert.ErrorIs(t, err, ErrUnknownCard)
}

func TestSession_Answer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cardID  string
		rating  models.Rating
		f       func(*mock_session.MockSaver, *mock_session.MockReviewLogger)
		wantErr error
		wantIvl float64
		persist bool
	}{
		{
			name:   "success saves and logs",
			cardID: "biceps",
			rating: models.RatingGood,
			f: func(ms *mock_session.MockSaver, ml *mock_session.MockReviewLogger) {
				ms.EXPECT().SaveStates(gomock.Any(), gomock.Any()).Return(nil)
				ml.EXPECT().Append(gomock.Any(), reviewOf("biceps", models.RatingGood)).Return(nil)
			},
			wantIvl: 1,
			persist: true,
		},
		{
			name:   "save failure keeps the transition",
			cardID: "biceps",
			rating: models.RatingAgain,
			f: func(ms *mock_session.MockSaver, ml *mock_session.MockReviewLogger) {
				ms.EXPECT().SaveStates(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
				ml.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantIvl: 1.0 / 1440,
		},
		{
			name:   "review log failure is not returned",
			cardID: "deltoid",
			rating: models.RatingEasy,
			f: func(ms *mock_session.MockSaver, ml *mock_session.MockReviewLogger) {
				ms.EXPECT().SaveStates(gomock.Any(), gomock.Any()).Return(nil)
				ml.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("db locked"))
			},
			wantIvl: 1,
			persist: true,
		},
		{
			name:    "unknown card",
			cardID:  "gluteus",
			rating:  models.RatingGood,
			wantErr: ErrUnknownCard,
			persist: true,
		},
		{
			name:    "invalid rating",
			cardID:  "biceps",
			rating:  models.Rating(0),
			wantErr: models.ErrInvalidRating,
			persist: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			saver := mock_session.NewMockSaver(ctrl)
			reviews := mock_session.NewMockReviewLogger(ctrl)
			if tt.f != nil {
				tt.f(saver, reviews)
			}
			s := newTestSession(t, nil, WithSaver(saver), WithReviewLogger(reviews))

			got, err := s.Answer(context.Background(), tt.cardID, tt.rating)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.Snapshot())
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantIvl, got.IntervalDays, 1e-12)

			stored, err := s.State(tt.cardID)
			require.NoError(t, err)
			assert.Equal(t, got, stored)
			assert.Equal(t, tt.cardID, s.Active())
			assert.Equal(t, tt.persist, s.LastPersistError() == nil)
		})
	}
}

func TestSession_AnswerSavesSnapshotWithNewState(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	saver := mock_session.NewMockSaver(ctrl)
	saver.EXPECT().SaveStates(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, states map[string]models.CardState) error {
			require.Contains(t, states, "triceps")
			assert.Equal(t, 1, states["triceps"].Streak)
			return nil
		})

	s := newTestSession(t, nil, WithSaver(saver))
	_, err := s.Answer(context.Background(), "triceps", models.RatingHard)
	require.NoError(t, err)
}

func TestSession_AnswerHonoursDeadline(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, map[string]models.CardState{
		"biceps": {CardID: "biceps", Status: models.StatusReview, IntervalDays: 6, EaseFactor: 2.5, Streak: 2, DueAt: testNow, LastReviewedAt: testNow.Add(-6 * 24 * time.Hour)},
	})
	exam := testNow.Add(5 * 24 * time.Hour)
	s.SetDeadline(&exam)
	exam = exam.Add(time.Hour) // the session keeps its own copy

	got, err := s.Answer(context.Background(), "biceps", models.RatingGood)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.IntervalDays)

	require.NotNil(t, s.Deadline())
	assert.True(t, s.Deadline().Equal(testNow.Add(5*24*time.Hour)))
	s.SetDeadline(nil)
	assert.Nil(t, s.Deadline())
}

func TestSession_DueQueue(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, map[string]models.CardState{
		"biceps":  {CardID: "biceps", Status: models.StatusReview, IntervalDays: 6, EaseFactor: 2.5, Streak: 2, DueAt: testNow.Add(time.Hour), LastReviewedAt: testNow.Add(-time.Hour)},
		"deltoid": {CardID: "deltoid", Status: models.StatusReview, IntervalDays: 1, EaseFactor: 1.8, Streak: 1, DueAt: testNow.Add(-time.Hour), LastReviewedAt: testNow.Add(-25 * time.Hour)},
	})

	queue := s.DueQueue(0)
	require.Len(t, queue, 2)
	assert.Equal(t, "triceps", queue[0].CardID)
	assert.Equal(t, "deltoid", queue[1].CardID)

	assert.Len(t, s.DueQueue(1), 1)
}

func TestSession_Import(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	saver := mock_session.NewMockSaver(ctrl)
	saver.EXPECT().SaveStates(gomock.Any(), gomock.Len(2)).Return(nil)

	s := newTestSession(t, map[string]models.CardState{"deltoid": models.NewCardState("deltoid", testNow)}, WithSaver(saver))

	dropped := s.Import(context.Background(), map[string]models.CardState{
		"biceps":  {Status: models.StatusReview, IntervalDays: -3, EaseFactor: 0.4, Streak: -2},
		"triceps": {CardID: "triceps", Status: models.StatusMastered, IntervalDays: 40, EaseFactor: 2.7, Streak: 6},
		"gluteus": models.NewCardState("gluteus", testNow),
		"deltoid": {Status: models.Status(12), EaseFactor: 2.5},
	})
	assert.Equal(t, 2, dropped)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "biceps", snap["biceps"].CardID)
	assert.Equal(t, 0.0, snap["biceps"].IntervalDays)
	assert.Equal(t, models.MinEaseFactor, snap["biceps"].EaseFactor)
	assert.Equal(t, 0, snap["biceps"].Streak)
	assert.Equal(t, models.StatusMastered, snap["triceps"].Status)
}

func TestSession_ImportCapsInterval(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, nil)
	dropped := s.Import(context.Background(), map[string]models.CardState{
		"biceps": {Status: models.StatusMastered, IntervalDays: 1e19, EaseFactor: 2.5, Streak: 5},
	})
	assert.Equal(t, 0, dropped)
	assert.Equal(t, float64(models.MaxIntervalDays), s.Snapshot()["biceps"].IntervalDays)

	next, err := s.Answer(context.Background(), "biceps", models.RatingGood)
	require.NoError(t, err)
	assert.Equal(t, float64(models.MaxIntervalDays), next.IntervalDays)
	assert.Equal(t, models.StatusMastered, next.Status)
}

func TestSession_ImportDropsNonFinite(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, nil)
	dropped := s.Import(context.Background(), map[string]models.CardState{
		"biceps": {Status: models.StatusReview, EaseFactor: math.NaN()},
	})
	assert.Equal(t, 1, dropped)
	assert.Empty(t, s.Snapshot())
}

func TestSession_Reset(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	saver := mock_session.NewMockSaver(ctrl)
	saver.EXPECT().Clear(gomock.Any()).Return(nil)

	s := newTestSession(t, map[string]models.CardState{"biceps": models.NewCardState("biceps", testNow)}, WithSaver(saver))
	require.NoError(t, s.SetActive("biceps"))
	require.NoError(t, s.Reset(context.Background()))
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, s.Active())

	boom := errors.New("disk full")
	saver.EXPECT().Clear(gomock.Any()).Return(boom)
	assert.ErrorIs(t, s.Reset(context.Background()), boom)
	assert.ErrorIs(t, s.LastPersistError(), boom)
}

func TestSession_SetActive(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, nil)
	assert.ErrorIs(t, s.SetActive("gluteus"), ErrUnknownCard)
	require.NoError(t, s.SetActive("deltoid"))
	assert.Equal(t, "deltoid", s.Active())
	require.NoError(t, s.SetActive(""))
	assert.Empty(t, s.Active())
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, map[string]models.CardState{"biceps": models.NewCardState("biceps", testNow)})
	snap := s.Snapshot()
	delete(snap, "biceps")
	assert.Len(t, s.Snapshot(), 1)
}

func TestSession_Stats(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, map[string]models.CardState{
		"biceps":  {CardID: "biceps", Status: models.StatusMastered, IntervalDays: 30, EaseFactor: 2.8, Streak: 5, DueAt: testNow.Add(30 * 24 * time.Hour), LastReviewedAt: testNow},
		"triceps": {CardID: "triceps", Status: models.StatusReview, IntervalDays: 6, EaseFactor: 2.2, Streak: 1, DueAt: testNow.Add(6 * 24 * time.Hour), LastReviewedAt: testNow},
	})
	exam := testNow.Add(36 * time.Hour)
	s.SetDeadline(&exam)

	st := s.Stats(testNow)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Due)
	assert.Equal(t, map[models.Status]int{models.StatusMastered: 1, models.StatusReview: 1, models.StatusNew: 1}, st.ByStatus)
	assert.InDelta(t, 2.5, st.AverageEase, 1e-9)
	assert.InDelta(t, 2.0, st.AverageStreak, 1e-9)
	assert.True(t, st.NextDueAt.Equal(testNow.Add(6*24*time.Hour)))
	assert.Equal(t, 2, st.DaysToDeadline)
}

func TestSession_ConcurrentAnswers(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"biceps", "triceps", "deltoid"}[i%3]
			_, err := s.Answer(context.Background(), id, models.RatingGood)
			assert.NoError(t, err)
			_ = s.DueQueue(0)
			_ = s.Stats(testNow)
		}(i)
	}
	wg.Wait()

	total := 0
	for _, st := range s.Snapshot() {
		total += st.Streak
	}
	assert.Equal(t, 50, total)
}
