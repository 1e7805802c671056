package preview

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const screenshotQuality = 90

// Browser captures previews with a headless Chrome shared across requests.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

// NewBrowser starts an exec allocator. Close releases it.
func NewBrowser(timeout time.Duration, l *zap.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 800),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		timeout:     timeout,
		logger:      l,
	}
}

// Capture navigates to url and grabs its title and a full-page screenshot.
func (b *Browser) Capture(ctx context.Context, url string) (*Capture, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}

	taskCtx, cancel := chromedp.NewContext(b.allocCtx, chromedp.WithLogf(b.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, b.timeout)
	defer cancel()
	// Abort the browser tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	var title string
	var shot []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.FullScreenshot(&shot, screenshotQuality),
	)
	if err != nil {
		b.logger.Error("preview capture failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("capturing %s: %w", url, err)
	}

	b.logger.Info("preview captured", zap.String("url", url), zap.String("title", title),
		zap.Duration("duration", time.Since(start)), zap.Int("bytes", len(shot)))
	return &Capture{URL: url, Title: title, Screenshot: shot}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.allocCancel()
}
