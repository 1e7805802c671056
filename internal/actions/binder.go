package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/internal/hostclient"
	"github.com/user/sitewatch/internal/monitoring"
	"github.com/user/sitewatch/internal/preview"
	"github.com/user/sitewatch/internal/render"
)

var (
	// ErrUnboundControl is returned when a command targets a control the row does not render.
	ErrUnboundControl = errors.New("control not bound")
	// ErrInvalidCommand is returned for commands missing a required field.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrRejected wraps a backend reply with success=false.
	ErrRejected = errors.New("rejected by backend")
)

// Table is the part of the rendered page the binder reads and edits.
type Table interface {
	Controls(siteID string) ([]render.Control, error)
	SetPublished(siteID string, published bool) error
	SetName(siteID, name string) error
	RemoveRow(siteID string) error
}

// SiteAPI is the hosting backend's site management surface.
type SiteAPI interface {
	ToggleVisibility(ctx context.Context, siteID string) (*domain.ToggleResponse, error)
	RenameSite(ctx context.Context, siteID, newName string) (*domain.RenameResponse, error)
	DeleteSite(ctx context.Context, siteID string) (*domain.DeleteResponse, error)
}

// Tracker cancels polling for a deleted row.
type Tracker interface {
	Untrack(siteID string) bool
}

type Notifier interface {
	Success(ctx context.Context, title, message, siteID string)
	Danger(ctx context.Context, title, message, siteID string)
}

// Deps wires the binder. Tracker, Metrics and Logger are optional.
type Deps struct {
	Table     Table
	Sites     SiteAPI
	Previewer preview.Previewer
	Notifier  Notifier
	Tracker   Tracker
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
}

var _ SiteAPI = (*hostclient.Client)(nil)

var commandForControl = map[render.ControlKind]domain.CommandType{
	render.ControlPreview: domain.CommandPreview,
	render.ControlRename:  domain.CommandRename,
	render.ControlDelete:  domain.CommandDelete,
	render.ControlToggle:  domain.CommandTogglePublish,
}

// Binder keeps a registry of the controls each row renders and dispatches commands against it.
type Binder struct {
	deps   Deps
	logger *zap.Logger

	mu    sync.RWMutex
	bound map[string]map[domain.CommandType]render.Control
}

func NewBinder(d Deps) *Binder {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{
		deps:   d,
		logger: logger,
		bound:  make(map[string]map[domain.CommandType]render.Control),
	}
}

// SetTracker wires the reconciler in after construction. Call it before dispatching.
func (b *Binder) SetTracker(t Tracker) {
	b.deps.Tracker = t
}

// Bind rescans the controls of siteID's row and replaces its registry entry.
func (b *Binder) Bind(siteID string) error {
	controls, err := b.deps.Table.Controls(siteID)
	if err != nil {
		b.Unbind(siteID)
		return fmt.Errorf("binding %s: %w", siteID, err)
	}

	entry := make(map[domain.CommandType]render.Control, len(controls))
	for _, c := range controls {
		if ct, ok := commandForControl[c.Kind]; ok {
			entry[ct] = c
		}
	}

	b.mu.Lock()
	b.bound[siteID] = entry
	b.mu.Unlock()
	b.logger.Debug("row actions bound", zap.String("site_id", siteID), zap.Int("controls", len(entry)))
	return nil
}

// BindAll binds every row in siteIDs and returns how many have at least one control.
func (b *Binder) BindAll(siteIDs []string) int {
	n := 0
	for _, id := range siteIDs {
		if err := b.Bind(id); err != nil {
			continue
		}
		if len(b.Bound(id)) > 0 {
			n++
		}
	}
	return n
}

// Unbind forgets a row.
func (b *Binder) Unbind(siteID string) {
	b.mu.Lock()
	delete(b.bound, siteID)
	b.mu.Unlock()
}

// Bound lists the command types siteID currently accepts.
func (b *Binder) Bound(siteID string) []domain.CommandType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.CommandType, 0, len(b.bound[siteID]))
	for ct := range b.bound[siteID] {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Binder) control(siteID string, ct domain.CommandType) (render.Control, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.bound[siteID][ct]
	return c, ok
}

// Dispatch runs cmd if its row renders the matching control.
func (b *Binder) Dispatch(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	ctrl, ok := b.control(cmd.Site(), cmd.Type())
	if !ok {
		b.count(cmd.Type(), "unbound")
		return domain.CommandResult{}, fmt.Errorf("%w: %s on %s", ErrUnboundControl, cmd.Type(), cmd.Site())
	}

	var (
		res domain.CommandResult
		err error
	)
	switch c := cmd.(type) {
	case domain.TogglePublish:
		res, err = b.toggle(ctx, c)
	case domain.Rename:
		res, err = b.rename(ctx, c)
	case domain.Delete:
		res, err = b.delete(ctx, c, ctrl)
	case domain.Preview:
		res, err = b.preview(ctx, c, ctrl)
	default:
		err = fmt.Errorf("%w: unknown command %T", ErrInvalidCommand, cmd)
	}

	if err != nil {
		b.count(cmd.Type(), "error")
		b.logger.Warn("command failed", zap.String("site_id", cmd.Site()),
			zap.String("command", string(cmd.Type())), zap.Error(err))
		return res, err
	}
	b.count(cmd.Type(), "ok")
	return res, nil
}

func (b *Binder) count(ct domain.CommandType, result string) {
	if b.deps.Metrics != nil {
		b.deps.Metrics.IncCommand(string(ct), result)
	}
}
