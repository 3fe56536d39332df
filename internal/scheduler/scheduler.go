package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Константы для настроек уведомлений по умолчанию
const (
	DefaultNotificationStartHour = 8  // Время начала уведомлений (8:00)
	DefaultNotificationEndHour   = 22 // Время окончания уведомлений (22:00)
	DefaultInterval              = time.Hour
	DefaultMaxCards              = 20
)

//go:generate mockgen -source=scheduler.go -destination=mock/scheduler_mock.go

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, count int) error
}

// DueCounter reports how many cards are due at now. session.Session implements it.
type DueCounter interface {
	DueCount(now time.Time) int
}

// Config controls when reminders go out
type Config struct {
	Interval  time.Duration
	StartHour int // first hour of the day reminders may be sent
	EndHour   int // last hour of the day reminders may be sent
	MaxCards  int // cap on the count announced in one reminder
	Location  *time.Location
}

// DefaultConfig returns the reminder settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Interval:  DefaultInterval,
		StartHour: DefaultNotificationStartHour,
		EndHour:   DefaultNotificationEndHour,
		MaxCards:  DefaultMaxCards,
		Location:  time.Local,
	}
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	due       DueCounter
	config    Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(notifier Notifier, due DueCounter, config Config, logger *zap.Logger) *Scheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(config.Location),
		notifier:  notifier,
		due:       due,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.config.Interval).WaitForSchedule().Do(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("failed to send reminder", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunOnce checks for due cards and sends a reminder when there are any.
// It returns the count announced, 0 when nothing was sent.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now().In(s.config.Location)

	// Проверяем, находится ли текущий час в диапазоне времени для отправки уведомлений
	if !s.inNotificationHours(now.Hour()) {
		s.logger.Debug("outside notification hours, skipping reminder",
			zap.Int("hour", now.Hour()),
			zap.Int("start", s.config.StartHour),
			zap.Int("end", s.config.EndHour))
		return 0, nil
	}

	count := s.due.DueCount(now)
	if count == 0 {
		return 0, nil
	}
	if s.config.MaxCards > 0 && count > s.config.MaxCards {
		count = s.config.MaxCards
	}

	if err := s.notifier.SendReminder(ctx, count); err != nil {
		return 0, err
	}
	s.logger.Info("reminder sent", zap.Int("due", count))
	return count, nil
}

// inNotificationHours also handles windows that wrap past midnight, e.g. 22..6
func (s *Scheduler) inNotificationHours(hour int) bool {
	start, end := s.config.StartHour, s.config.EndHour
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
