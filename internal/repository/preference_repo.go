package repository

import "context"

// PreferenceRepository is a small key-value store for user preferences.
type PreferenceRepository interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a value under key.
	Set(ctx context.Context, key, value string) error
}
