package theme

import (
	"context"
	"errors"
	"testing"

	"github.com/user/sitewatch/internal/storage"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("redis down") }

func TestCurrentFallsBackToDefault(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		prefersDark bool
		want        Theme
	}{
		{false, Light},
		{true, Dark},
	} {
		got, err := NewPreference(storage.NewMemoryStore(), tc.prefersDark).Current(ctx)
		if err != nil {
			t.Fatalf("Current: %v", err)
		}
		if got != tc.want {
			t.Errorf("prefersDark=%v: Current = %q, want %q", tc.prefersDark, got, tc.want)
		}
	}
}

func TestSetAndToggle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := NewPreference(store, false)

	if _, err := p.Set(ctx, "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _, _ := store.Get(ctx, "theme"); v != "dark" {
		t.Errorf("stored = %q, want dark", v)
	}

	got, err := p.Toggle(ctx)
	if err != nil || got != Light {
		t.Fatalf("Toggle = (%q, %v), want light", got, err)
	}
	if got, _ := p.Toggle(ctx); got != Dark {
		t.Errorf("second Toggle = %q, want dark", got)
	}
}

func TestSetRejectsUnknownTheme(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := NewPreference(store, true)

	if _, err := p.Set(ctx, "sepia"); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("err = %v, want ErrInvalidTheme", err)
	}
	if _, ok, _ := store.Get(ctx, "theme"); ok {
		t.Error("invalid theme must not be stored")
	}

	// A corrupt stored value reads as the default.
	store.Set(ctx, "theme", "sepia")
	if got, _ := p.Current(ctx); got != Dark {
		t.Errorf("Current = %q, want dark", got)
	}
}

func TestStoreErrors(t *testing.T) {
	p := NewPreference(failingStore{}, false)
	if _, err := p.Current(context.Background()); err == nil {
		t.Error("expected a read error")
	}
	if _, err := p.Set(context.Background(), "light"); err == nil {
		t.Error("expected a write error")
	}
}

func TestIcon(t *testing.T) {
	if Dark.Icon() != "bi-moon-fill" || Light.Icon() != "bi-sun-fill" {
		t.Errorf("icons = %s %s", Dark.Icon(), Light.Icon())
	}
}
