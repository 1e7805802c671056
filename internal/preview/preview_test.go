package preview

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPassthrough(t *testing.T) {
	c, err := Passthrough{}.Capture(context.Background(), "https://cdn.example.com/s-1/index.html")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if c.URL != "https://cdn.example.com/s-1/index.html" || c.Screenshot != nil {
		t.Errorf("capture = %+v", c)
	}

	if _, err := (Passthrough{}).Capture(context.Background(), ""); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("err = %v, want ErrEmptyURL", err)
	}
}

func TestBrowserRejectsEmptyURL(t *testing.T) {
	b := NewBrowser(time.Second, zap.NewNop())
	defer b.Close()

	// No browser process is started for an empty url.
	if _, err := b.Capture(context.Background(), ""); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("err = %v, want ErrEmptyURL", err)
	}
}
