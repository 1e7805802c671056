package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/internal/repository"
)

// Feed is the process-wide notification widget: a bounded list of recent
// notifications, each also logged and optionally published.
type Feed struct {
	mu        sync.Mutex
	items     []domain.Notification
	capacity  int
	nextID    int64
	publisher repository.NotificationPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeed keeps at most capacity notifications. publisher and l may be nil.
func NewFeed(capacity int, publisher repository.NotificationPublisher, l *zap.Logger) *Feed {
	if capacity <= 0 {
		capacity = 1
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Feed{
		capacity:  capacity,
		publisher: publisher,
		logger:    l,
		now:       time.Now,
	}
}

// Notify records a notification.
func (f *Feed) Notify(ctx context.Context, level domain.Level, title, message, siteID string) domain.Notification {
	f.mu.Lock()
	f.nextID++
	n := domain.Notification{
		ID:        f.nextID,
		Level:     level,
		Title:     title,
		Message:   message,
		SiteID:    siteID,
		CreatedAt: f.now(),
	}
	f.items = append(f.items, n)
	if len(f.items) > f.capacity {
		f.items = append(f.items[:0:0], f.items[len(f.items)-f.capacity:]...)
	}
	f.mu.Unlock()

	f.logger.Info("notification",
		zap.String("level", string(level)),
		zap.String("title", title),
		zap.String("message", message),
		zap.String("site_id", siteID),
	)

	if f.publisher != nil {
		if err := f.publisher.Publish(ctx, n); err != nil {
			f.logger.Warn("failed to publish notification", zap.Int64("id", n.ID), zap.Error(err))
		}
	}
	return n
}

func (f *Feed) Success(ctx context.Context, title, message, siteID string) {
	f.Notify(ctx, domain.LevelSuccess, title, message, siteID)
}

func (f *Feed) Info(ctx context.Context, title, message, siteID string) {
	f.Notify(ctx, domain.LevelInfo, title, message, siteID)
}

func (f *Feed) Warning(ctx context.Context, title, message, siteID string) {
	f.Notify(ctx, domain.LevelWarning, title, message, siteID)
}

func (f *Feed) Danger(ctx context.Context, title, message, siteID string) {
	f.Notify(ctx, domain.LevelDanger, title, message, siteID)
}

// List returns the retained notifications, oldest first.
func (f *Feed) List() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.items...)
}

// Since returns notifications with an id greater than afterID.
func (f *Feed) Since(afterID int64) []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.items {
		if n.ID > afterID {
			out = append(out, n)
		}
	}
	return out
}

// Count returns how many retained notifications are at level for siteID.
// An empty siteID matches every site.
func (f *Feed) Count(level domain.Level, siteID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.items {
		if n.Level == level && (siteID == "" || n.SiteID == siteID) {
			count++
		}
	}
	return count
}
