package repository

import (
	"context"

	"github.com/user/sitewatch/internal/domain"
)

// NotificationPublisher fans notifications out to other processes.
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}
