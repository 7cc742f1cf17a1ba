package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "recall/internal/platform/errors"
	"recall/internal/platform/slug"
)

const SchemaVersion = 1

// Record is one completed quiz attempt. It is never mutated after creation.
type Record struct {
	ID             string
	UserID         string
	Category       string
	TotalQuestions int
	CorrectAnswers int
	Skipped        int
	TotalTime      float64
	Timestamp      time.Time
}

func (r Record) Validate() error {
	if r.TotalQuestions < 0 || r.CorrectAnswers < 0 || r.Skipped < 0 {
		return fmt.Errorf("%w: negative counts", apperrors.ErrMalformedRecord)
	}
	if r.TotalTime < 0 {
		return fmt.Errorf("%w: negative total time", apperrors.ErrMalformedRecord)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", apperrors.ErrMalformedRecord)
	}
	return nil
}

// Tier is the provenance of a record set.
type Tier string

const (
	TierLive     Tier = "live"
	TierCached   Tier = "cached"
	TierFallback Tier = "fallback"
)

func (t Tier) Label() string {
	switch t {
	case TierLive:
		return "Live"
	case TierCached:
		return "Cached"
	case TierFallback:
		return "Fallback"
	default:
		return "Unknown"
	}
}

// Connected is true only when the records came straight from the remote.
func (t Tier) Connected() bool {
	return t == TierLive
}

// UserContext scopes every store access. It replaces any ambient
// "current user" lookup.
type UserContext struct {
	UserID string
}

func (u UserContext) Validate() error {
	if strings.TrimSpace(u.UserID) == "" {
		return fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	return nil
}

// CacheKey addresses the process-local cache.
func (u UserContext) CacheKey() string {
	return "sessions:" + u.UserID
}

// NamespacedKey addresses the durable fallback store.
func (u UserContext) NamespacedKey() string {
	return slug.Make(u.UserID) + "/sessions"
}
