package spaced_repetition

import (
	"math"
	"sort"
	"time"

	"github.com/example/musclecards/pkg/models"
)

const (
	day                = 24 * time.Hour
	graduationInterval = 6
)

// SM2 implements a SuperMemo-2 variant for spaced repetition
type SM2 struct {
	// Минимальный фактор легкости
	MinEase float64
	// Максимальный интервал повторения в днях
	MaxInterval int
	// Интервал (в днях), после которого карточка считается выученной
	MasteredAfter int
	// Задержка перед повтором после ответа AGAIN
	RetryDelay time.Duration
	// Доля оставшихся до дедлайна дней, которую может занять один интервал
	DeadlineFactor float64
	// Now returns the review instant. Defaults to time.Now.
	Now func() time.Time
}

// NewSM2 создает новый экземпляр SM2 с настройками по умолчанию
func NewSM2() *SM2 {
	return &SM2{
		MinEase:        models.MinEaseFactor,
		MaxInterval:    models.MaxIntervalDays, // Максимальный интервал - 1 год
		MasteredAfter:  21,
		RetryDelay:     time.Minute,
		DeadlineFactor: 0.4,
		Now:            time.Now,
	}
}

func (sm *SM2) now() time.Time {
	if sm.Now == nil {
		return time.Now()
	}
	return sm.Now()
}

// Review computes the state that follows rating the card.
// A nil deadline means no exam date; a deadline in the past is ignored.
// The returned state always carries a fresh status, due date and review time.
func (sm *SM2) Review(current models.CardState, rating models.Rating, deadline *time.Time) models.CardState {
	if !rating.IsValid() {
		return current
	}

	now := sm.now()
	next := current
	next.LastReviewedAt = now

	if rating == models.RatingAgain {
		// Forgot it: drill again in a minute, ease stays untouched
		next.Status = models.StatusLearning
		next.Streak = 0
		next.EaseFactor = sm.clampEase(current.EaseFactor)
		next.IntervalDays = sm.RetryDelay.Hours() / 24
		next.DueAt = now.Add(sm.RetryDelay)
		return next
	}

	interval, ease := sm.ComputeNextInterval(rating.Quality(), current.Streak, current.EaseFactor, current.IntervalDays)

	if rating == models.RatingHard {
		interval = interval / 2
		if interval < 1 {
			interval = 1
		}
		ease = sm.clampEase(ease - 0.15)
	}

	if deadline != nil && deadline.After(now) {
		daysLeft := deadline.Sub(now).Hours() / 24
		limit := int(math.Floor(daysLeft * sm.DeadlineFactor))
		if limit < 1 {
			limit = 1
		}
		if interval > limit {
			interval = limit
		}
	}

	if interval > sm.MaxInterval {
		interval = sm.MaxInterval
	}

	next.EaseFactor = ease
	next.IntervalDays = float64(interval)
	next.Status = sm.statusFor(interval)
	next.Streak = current.Streak + 1
	next.DueAt = now.Add(time.Duration(interval) * day)
	return next
}

// ComputeNextInterval вычисляет следующий интервал повторения на основе ответа
// quality - качество ответа (3..5)
// streak - количество успешных повторений подряд до этого ответа
// currentEF - текущий фактор легкости
// currentInterval - текущий интервал в днях
func (sm *SM2) ComputeNextInterval(quality, streak int, currentEF, currentInterval float64) (int, float64) {
	// Обновляем фактор легкости
	q := float64(5 - quality)
	newEF := sm.clampEase(currentEF + (0.1 - q*(0.08+q*0.02)))

	// Фиксированные шаги 1 и 6 дней для первых успешных ответов.
	// A card already holding a 6+ day interval (restored progress) has passed the second step.
	var newInterval int
	switch {
	case streak <= 0:
		newInterval = 1
	case streak == 1 && currentInterval < graduationInterval:
		newInterval = graduationInterval
	default:
		// cap before converting, a huge float does not fit an int
		next := math.Min(currentInterval*newEF, float64(sm.MaxInterval))
		if next > 0 {
			newInterval = int(math.Round(next))
		}
	}
	if newInterval < 1 {
		newInterval = 1
	}
	return newInterval, newEF
}

func (sm *SM2) clampEase(ef float64) float64 {
	if ef < sm.MinEase || math.IsNaN(ef) {
		return sm.MinEase // Не опускаем ниже 1.3
	}
	return ef
}

func (sm *SM2) statusFor(interval int) models.Status {
	if interval > sm.MasteredAfter {
		return models.StatusMastered
	}
	return models.StatusReview
}

// IsMastered determines if a card is considered "mastered"
func (sm *SM2) IsMastered(state models.CardState) bool {
	return state.Status == models.StatusMastered
}

// NextDue returns the next cards due for review, at most limit of them (limit <= 0 means all).
func NextDue(states []models.CardState, now time.Time, limit int) []models.CardState {
	var due []models.CardState
	for _, s := range states {
		if s.IsDue(now) {
			due = append(due, s)
		}
	}

	// Sort due items by priority:
	// 1. Cards that have never been reviewed
	// 2. Cards with lowest easiness factor (hardest cards)
	// 3. Cards with earliest due date
	sort.SliceStable(due, func(i, j int) bool {
		newI, newJ := !due[i].Reviewed(), !due[j].Reviewed()
		if newI != newJ {
			return newI
		}
		if due[i].EaseFactor != due[j].EaseFactor {
			return due[i].EaseFactor < due[j].EaseFactor
		}
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].CardID < due[j].CardID
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
