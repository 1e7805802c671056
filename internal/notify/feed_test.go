package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/sitewatch/internal/domain"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return p.err
}

func TestFeedKeepsNewest(t *testing.T) {
	f := NewFeed(2, nil, zap.NewNop())
	ctx := context.Background()

	f.Info(ctx, "one", "1", "")
	f.Warning(ctx, "two", "2", "s-1")
	f.Success(ctx, "three", "3", "s-1")

	got := f.List()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "two" || got[1].Title != "three" {
		t.Errorf("titles = [%s %s], want [two three]", got[0].Title, got[1].Title)
	}
	if got[1].ID != 3 {
		t.Errorf("ID = %d, want 3", got[1].ID)
	}
}

func TestFeedSinceAndCount(t *testing.T) {
	f := NewFeed(10, nil, zap.NewNop())
	ctx := context.Background()

	f.Danger(ctx, "failed", "disk full", "s-1")
	f.Danger(ctx, "failed", "quota", "s-2")
	f.Success(ctx, "ok", "published", "s-1")

	if n := len(f.Since(1)); n != 2 {
		t.Errorf("Since(1) len = %d, want 2", n)
	}
	if n := f.Count(domain.LevelDanger, ""); n != 2 {
		t.Errorf("Count(danger) = %d, want 2", n)
	}
	if n := f.Count(domain.LevelDanger, "s-1"); n != 1 {
		t.Errorf("Count(danger, s-1) = %d, want 1", n)
	}
}

func TestFeedPublishesAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	pub := &recordingPublisher{err: errors.New("redis down")}
	f := NewFeed(5, pub, zap.New(core))

	f.Warning(context.Background(), "timeout", "refresh the page", "s-9")

	if len(pub.sent) != 1 || pub.sent[0].SiteID != "s-9" {
		t.Fatalf("published = %+v", pub.sent)
	}
	if logs.FilterMessage("notification").Len() != 1 {
		t.Error("expected notification to be logged")
	}
	if logs.FilterMessage("failed to publish notification").Len() != 1 {
		t.Error("expected publish failure to be logged")
	}
	if len(f.List()) != 1 {
		t.Error("publish failure must not drop the notification")
	}
}

func TestFeedWithoutLogger(t *testing.T) {
	f := NewFeed(5, nil, nil)
	f.Info(context.Background(), "Info", "Queued", "s-1")
	if got := f.List(); len(got) != 1 || got[0].Message != "Queued" {
		t.Errorf("List = %+v", got)
	}
}
