// Package profile stores the per-user context (name, language, timezone)
// that prompts are rendered with.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/core"
)

// ErrNotFound is returned by Get when the user has no profile.
var ErrNotFound = errors.New("profile not found")

// Record is a stored profile.
type Record struct {
	UserID    string       `json:"user_id"`
	Profile   core.Profile `json:"profile"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Store persists one profile per user.
type Store interface {
	// Save creates or replaces the user's profile.
	Save(ctx context.Context, userID string, p core.Profile) error

	// Get returns the user's profile or ErrNotFound.
	Get(ctx context.Context, userID string) (*Record, error)

	Close() error
}

// Lookup returns the user's profile, or the zero Profile when none is stored.
func Lookup(ctx context.Context, s Store, userID string) (core.Profile, error) {
	rec, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return core.Profile{}, nil
	}
	if err != nil {
		return core.Profile{}, err
	}
	return rec.Profile, nil
}
