package theme

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/sitewatch/internal/repository"
)

// ErrInvalidTheme is returned by Set and Parse for anything other than light or dark.
var ErrInvalidTheme = errors.New("invalid theme")

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

const storeKey = "theme"

// Parse validates a theme name.
func Parse(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

// Icon is the bootstrap-icons class shown on the theme toggle.
func (t Theme) Icon() string {
	if t == Dark {
		return "bi-moon-fill"
	}
	return "bi-sun-fill"
}

// Preference is the persisted theme choice.
type Preference struct {
	store       repository.PreferenceRepository
	prefersDark bool
}

// NewPreference reads and writes through store. prefersDark is the system default
// used until a choice is stored.
func NewPreference(store repository.PreferenceRepository, prefersDark bool) *Preference {
	return &Preference{store: store, prefersDark: prefersDark}
}

func (p *Preference) fallback() Theme {
	if p.prefersDark {
		return Dark
	}
	return Light
}

// Current returns the stored theme, or the default when none (or garbage) is stored.
func (p *Preference) Current(ctx context.Context) (Theme, error) {
	v, ok, err := p.store.Get(ctx, storeKey)
	if err != nil {
		return "", fmt.Errorf("reading theme: %w", err)
	}
	if !ok {
		return p.fallback(), nil
	}
	t, err := Parse(v)
	if err != nil {
		return p.fallback(), nil
	}
	return t, nil
}

// Set stores a theme by name.
func (p *Preference) Set(ctx context.Context, name string) (Theme, error) {
	t, err := Parse(name)
	if err != nil {
		return "", err
	}
	if err := p.store.Set(ctx, storeKey, string(t)); err != nil {
		return "", fmt.Errorf("saving theme: %w", err)
	}
	return t, nil
}

// Toggle flips between light and dark and stores the result.
func (p *Preference) Toggle(ctx context.Context) (Theme, error) {
	cur, err := p.Current(ctx)
	if err != nil {
		return "", err
	}
	next := Dark
	if cur == Dark {
		next = Light
	}
	return p.Set(ctx, string(next))
}
