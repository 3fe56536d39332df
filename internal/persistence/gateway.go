// Package persistence keeps the progress map and learner profile in a key/value store.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/musclecards/internal/codec"
	"github.com/example/musclecards/pkg/models"
	"go.uber.org/zap"
)

// Storage keys
const (
	KeyProgress = "progress"
	KeySavedAt  = "progress_saved_at"
	KeyProfile  = "profile"
)

// KVStore is a durable string key/value store.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Profile holds the learner settings that travel with progress.
type Profile struct {
	DisplayName string     `json:"displayName,omitempty"`
	Theme       string     `json:"theme,omitempty"`
	ActiveCard  string     `json:"activeCard,omitempty"`
	ExamDate    *time.Time `json:"examDate,omitempty"`
}

// Gateway reads and writes progress through a KVStore and remembers when it last saved.
type Gateway struct {
	store  KVStore
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	lastSavedAt time.Time
}

// NewGateway creates a gateway. A nil logger disables logging.
func NewGateway(store KVStore, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{store: store, logger: logger, now: time.Now}
}

// LoadStates reads the stored progress. Stored data that cannot be read is
// logged and yields an empty map; only store failures are returned.
func (g *Gateway) LoadStates(ctx context.Context, cat *models.Catalog) (map[string]models.CardState, error) {
	raw, ok, err := g.store.Get(ctx, KeyProgress)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if !ok || raw == "" {
		return map[string]models.CardState{}, nil
	}

	decoded, err := codec.DecodeJSON([]byte(raw), cat)
	if err != nil {
		g.logger.Warn("stored progress is unreadable, starting empty", zap.Error(err))
		return map[string]models.CardState{}, nil
	}
	if len(decoded.Skipped) > 0 {
		g.logger.Warn("skipped stored card states", zap.Int("count", len(decoded.Skipped)))
	}

	if savedAt, ok, err := g.store.Get(ctx, KeySavedAt); err == nil && ok {
		if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
			g.setLastSavedAt(t)
		}
	}
	return decoded.States, nil
}

// SaveStates writes the full-precision progress map and records the save time.
func (g *Gateway) SaveStates(ctx context.Context, states map[string]models.CardState) error {
	if states == nil {
		states = map[string]models.CardState{}
	}
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := g.store.Set(ctx, KeyProgress, string(data)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	now := g.now().UTC()
	if err := g.store.Set(ctx, KeySavedAt, now.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save progress timestamp: %w", err)
	}
	g.setLastSavedAt(now)
	return nil
}

// LoadProfile returns the stored profile, or an empty one if none was saved.
func (g *Gateway) LoadProfile(ctx context.Context) (Profile, error) {
	raw, ok, err := g.store.Get(ctx, KeyProfile)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if !ok || raw == "" {
		return Profile{}, nil
	}

	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		g.logger.Warn("stored profile is unreadable, using defaults", zap.Error(err))
		return Profile{}, nil
	}
	return p, nil
}

// SaveProfile stores the profile.
func (g *Gateway) SaveProfile(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := g.store.Set(ctx, KeyProfile, string(data)); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Clear removes stored progress and its save time. The profile is kept.
func (g *Gateway) Clear(ctx context.Context) error {
	for _, key := range []string{KeyProgress, KeySavedAt} {
		if err := g.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	g.setLastSavedAt(time.Time{})
	return nil
}

// LastSavedAt returns when progress was last written, zero if unknown.
func (g *Gateway) LastSavedAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastSavedAt
}

func (g *Gateway) setLastSavedAt(t time.Time) {
	g.mu.Lock()
	g.lastSavedAt = t
	g.mu.Unlock()
}
