package repository

import (
	"context"

	"github.com/user/sitewatch/internal/domain"
)

// StatusBoardRepository publishes the current status of each site row for external readers.
type StatusBoardRepository interface {
	// SetStatus records the current state of a site.
	SetStatus(ctx context.Context, siteID string, state domain.TrackState) error
	// GetStatus returns the last recorded state, storage.ErrNotFound if none.
	GetStatus(ctx context.Context, siteID string) (domain.TrackState, error)
	// DeleteStatus forgets a site that is no longer watched. Missing keys are not an error.
	DeleteStatus(ctx context.Context, siteID string) error
}
