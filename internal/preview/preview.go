package preview

import (
	"context"
	"errors"
)

// ErrEmptyURL is returned when a preview is requested for a site with no published URL.
var ErrEmptyURL = errors.New("preview url is empty")

// Capture is what a preview produces for a published site.
type Capture struct {
	URL        string
	Title      string
	Screenshot []byte
}

// Previewer renders a preview of a hosted site.
type Previewer interface {
	Capture(ctx context.Context, url string) (*Capture, error)
}

// Passthrough hands the URL back untouched, for clients that embed it in a frame themselves.
type Passthrough struct{}

func (Passthrough) Capture(_ context.Context, url string) (*Capture, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	return &Capture{URL: url}, nil
}
