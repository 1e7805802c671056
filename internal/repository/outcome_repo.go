package repository

import (
	"context"

	"github.com/user/sitewatch/internal/domain"
)

// OutcomeRepository journals terminal transitions.
type OutcomeRepository interface {
	// Record appends an outcome.
	Record(ctx context.Context, outcome *domain.Outcome) error
	// Recent returns up to limit outcomes, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.Outcome, error)
}
