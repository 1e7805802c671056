package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/internal/monitoring"
	"github.com/user/sitewatch/internal/repository"
	"github.com/user/sitewatch/internal/storage"
)

const (
	DefaultInterval     = 3000 * time.Millisecond
	DefaultMaxAttempts  = 60
	DefaultQueryTimeout = 10 * time.Second

	sideEffectTimeout = 5 * time.Second
	unknownError      = "unknown error"
)

// StatusQuery fetches the processing state of a site from the hosting backend.
type StatusQuery interface {
	SiteStatus(ctx context.Context, siteID string) (*domain.StatusResponse, error)
}

// RowRenderer writes the status and actions cells of a site row.
type RowRenderer interface {
	HasRow(siteID string) bool
	RenderCompleted(site domain.SiteStatus) error
	RenderFailed(siteID, message string) error
	RenderTimedOut(siteID string) error
}

// ActionBinder registers the controls of a freshly rendered row.
type ActionBinder interface {
	Bind(siteID string) error
}

// Notifier shows user-visible messages.
type Notifier interface {
	Success(ctx context.Context, title, message, siteID string)
	Warning(ctx context.Context, title, message, siteID string)
	Danger(ctx context.Context, title, message, siteID string)
}

// Settings controls the poll cadence.
type Settings struct {
	Interval     time.Duration
	MaxAttempts  int
	QueryTimeout time.Duration
}

// Deps are the reconciler's collaborators. Board, Journal, Metrics and Clock are optional.
type Deps struct {
	Query    StatusQuery
	Renderer RowRenderer
	Binder   ActionBinder
	Notifier Notifier
	Board    repository.StatusBoardRepository
	Journal  repository.OutcomeRepository
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
	Clock    Clock
}

// PendingSource lists the rows still waiting for a terminal status.
type PendingSource interface {
	PendingSiteIDs() []string
}

// trackedSite is one entry of the tracking set. Fields are guarded by Reconciler.mu.
// A released entry stays in the set until its terminal render has finished.
type trackedSite struct {
	id          string
	attempts    int
	maxAttempts int
	interval    time.Duration
	state       domain.TrackState
	startedAt   time.Time
	cancel      context.CancelFunc
	released    bool
}

// transition carries what a terminal state change needs to render, outside the lock.
type transition struct {
	siteID   string
	state    domain.TrackState
	attempts int
	site     *domain.SiteStatus
}

// Reconciler drives every tracked site from pending to a terminal state.
type Reconciler struct {
	settings Settings
	deps     Deps
	logger   *zap.Logger
	clock    Clock

	mu    sync.Mutex
	sites map[string]*trackedSite
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(s Settings, d Deps) *Reconciler {
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.QueryTimeout <= 0 {
		s.QueryTimeout = DefaultQueryTimeout
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := d.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		settings: s,
		deps:     d,
		logger:   logger,
		clock:    clock,
		sites:    make(map[string]*trackedSite),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Track starts polling siteID. It returns false without side effects when the site
// is already tracked, has no renderable row, or the reconciler is stopped.
func (r *Reconciler) Track(siteID string) bool {
	if siteID == "" {
		return false
	}

	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	if _, ok := r.sites[siteID]; ok {
		r.mu.Unlock()
		return false
	}
	if !r.deps.Renderer.HasRow(siteID) {
		r.mu.Unlock()
		r.logger.Debug("no row to track", zap.String("site_id", siteID))
		return false
	}

	ctx, cancel := context.WithCancel(r.ctx)
	site := &trackedSite{
		id:          siteID,
		maxAttempts: r.settings.MaxAttempts,
		interval:    r.settings.Interval,
		state:       domain.StatePending,
		startedAt:   time.Now(),
		cancel:      cancel,
	}
	r.sites[siteID] = site
	r.updateGauge()
	r.wg.Add(1)
	r.mu.Unlock()

	// Recorded before the first tick so a terminal status can't be overwritten.
	r.recordStatus(siteID, domain.StatePending)
	go r.poll(ctx, site)

	r.logger.Info("tracking site", zap.String("site_id", siteID),
		zap.Duration("interval", site.interval), zap.Int("max_attempts", site.maxAttempts))
	return true
}

// Resume tracks every id and returns how many polls were started.
func (r *Reconciler) Resume(siteIDs []string) int {
	started := 0
	for _, id := range siteIDs {
		if r.Track(id) {
			started++
		}
	}
	return started
}

// TrackPending tracks every row src reports as pending and returns how many polls were started.
func (r *Reconciler) TrackPending(src PendingSource) int {
	return r.Resume(src.PendingSiteIDs())
}

// Untrack cancels a poll without rendering a terminal state and clears its board entry.
// It returns false when the site is not tracked or is already settling.
func (r *Reconciler) Untrack(siteID string) bool {
	r.mu.Lock()
	site, ok := r.sites[siteID]
	if !ok || site.released {
		r.mu.Unlock()
		return false
	}
	r.release(site)
	r.drop(site)
	r.mu.Unlock()

	r.clearStatus(siteID)
	return true
}

// State reports the state of siteID: the live entry when tracked, else the last
// status recorded on the board.
func (r *Reconciler) State(siteID string) (domain.TrackState, bool) {
	r.mu.Lock()
	site, ok := r.sites[siteID]
	var state domain.TrackState
	if ok {
		state = site.state
	}
	r.mu.Unlock()
	if ok {
		return state, true
	}

	if r.deps.Board == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	state, err := r.deps.Board.GetStatus(ctx, siteID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("failed to read status board", zap.String("site_id", siteID), zap.Error(err))
		}
		return "", false
	}
	return state, true
}

// Snapshot lists the sites currently being polled, ordered by id.
func (r *Reconciler) Snapshot() []domain.TrackedSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TrackedSnapshot, 0, len(r.sites))
	for _, s := range r.sites {
		if s.released {
			continue
		}
		out = append(out, domain.TrackedSnapshot{
			SiteID:       s.id,
			State:        s.state,
			AttemptCount: s.attempts,
			MaxAttempts:  s.maxAttempts,
			StartedAt:    s.startedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out
}

// Active returns the number of sites being polled or settling.
func (r *Reconciler) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sites)
}

// Wait blocks until every poll has ended.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Stop cancels all polls and waits for them to return. Track is a no-op afterwards.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.cancel()
	var cancelled []string
	for _, site := range r.sites {
		// Settling sites record their own terminal status.
		if !site.released {
			cancelled = append(cancelled, site.id)
		}
		r.release(site)
		r.drop(site)
	}
	r.mu.Unlock()
	r.wg.Wait()

	for _, id := range cancelled {
		r.clearStatus(id)
	}
}

func (r *Reconciler) poll(ctx context.Context, site *trackedSite) {
	defer r.wg.Done()
	ticker := r.clock.NewTicker(site.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if done := r.cycle(ctx, site); done {
				return
			}
		}
	}
}

// cycle runs one poll attempt and reports whether the site left the pending state.
func (r *Reconciler) cycle(ctx context.Context, site *trackedSite) bool {
	r.mu.Lock()
	if site.state != domain.StatePending || site.released {
		r.mu.Unlock()
		return true
	}
	site.attempts++
	attempt := site.attempts
	r.mu.Unlock()

	qctx, cancel := context.WithTimeout(ctx, r.settings.QueryTimeout)
	resp, err := r.deps.Query.SiteStatus(qctx, site.id)
	cancel()

	r.mu.Lock()
	if site.state != domain.StatePending || site.released {
		r.mu.Unlock()
		r.logger.Debug("discarding status response for settled site",
			zap.String("site_id", site.id), zap.Int("attempt", attempt))
		return true
	}

	var t *transition
	switch {
	case err != nil:
		r.logger.Warn("status query failed", zap.String("site_id", site.id),
			zap.Int("attempt", attempt), zap.Error(err))
		r.incPoll("transport_error")
	case resp == nil || !resp.Success || resp.Data == nil:
		r.logger.Debug("status query rejected", zap.String("site_id", site.id), zap.Int("attempt", attempt))
		r.incPoll("rejected")
	case resp.Data.Status == domain.JobCompleted:
		r.incPoll("completed")
		t = r.settle(site, domain.StateCompleted, resp.Data)
	case resp.Data.Status == domain.JobFailed:
		r.incPoll("failed")
		t = r.settle(site, domain.StateFailed, resp.Data)
	default:
		r.incPoll("pending")
	}
	// The last allowed attempt ends the watch unless it was conclusive.
	if t == nil && attempt >= site.maxAttempts {
		t = r.settle(site, domain.StateTimedOut, nil)
	}
	r.mu.Unlock()

	if t == nil {
		return false
	}
	r.apply(t)

	r.mu.Lock()
	r.drop(site)
	r.mu.Unlock()
	return true
}

// settle moves site to a terminal state and cancels its poll. The entry is dropped
// once apply has run, so Track can't start a second poll over a half-rendered row.
// Caller holds r.mu.
func (r *Reconciler) settle(site *trackedSite, state domain.TrackState, data *domain.SiteStatus) *transition {
	site.state = state
	r.release(site)
	t := &transition{siteID: site.id, state: state, attempts: site.attempts}
	if data != nil {
		cp := *data
		cp.ID = site.id
		t.site = &cp
	}
	return t
}

// release cancels the poll exactly once. Caller holds r.mu.
func (r *Reconciler) release(site *trackedSite) {
	if site.released {
		return
	}
	site.released = true
	site.cancel()
}

// drop removes the entry if it still owns its id. Caller holds r.mu.
func (r *Reconciler) drop(site *trackedSite) {
	if r.sites[site.id] == site {
		delete(r.sites, site.id)
		r.updateGauge()
	}
}

// apply performs the visible side effects of a terminal transition.
func (r *Reconciler) apply(t *transition) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	log := r.logger.With(zap.String("site_id", t.siteID), zap.String("state", string(t.state)), zap.Int("attempts", t.attempts))
	outcome := &domain.Outcome{SiteID: t.siteID, State: t.state, Attempts: t.attempts}

	switch t.state {
	case domain.StateCompleted:
		outcome.SiteName = t.site.Name
		if err := r.deps.Renderer.RenderCompleted(*t.site); err != nil {
			log.Error("failed to render completed row", zap.Error(err))
		} else if err := r.deps.Binder.Bind(t.siteID); err != nil {
			log.Error("failed to bind row actions", zap.Error(err))
		}
		r.deps.Notifier.Success(ctx, "Success", fmt.Sprintf("Site %q has been published!", t.site.Name), t.siteID)

	case domain.StateFailed:
		msg := t.site.ErrorMessage
		if msg == "" {
			msg = unknownError
		}
		outcome.SiteName = t.site.Name
		outcome.Message = msg
		if err := r.deps.Renderer.RenderFailed(t.siteID, msg); err != nil {
			log.Error("failed to render failed row", zap.Error(err))
		}
		r.deps.Notifier.Danger(ctx, "Failed", fmt.Sprintf("Site %q failed to process: %s", t.site.Name, msg), t.siteID)

	case domain.StateTimedOut:
		outcome.Message = "status polling timed out"
		if err := r.deps.Renderer.RenderTimedOut(t.siteID); err != nil {
			log.Error("failed to render timed out row", zap.Error(err))
		}
		r.deps.Notifier.Warning(ctx, "Timeout", "Site status polling timed out, refresh the page to see the latest status", t.siteID)
	}

	log.Info("site settled")
	if r.deps.Metrics != nil {
		r.deps.Metrics.IncTransition(string(t.state))
	}
	r.recordStatus(t.siteID, t.state)
	if r.deps.Journal != nil {
		if err := r.deps.Journal.Record(ctx, outcome); err != nil {
			log.Error("failed to journal outcome", zap.Error(err))
		}
	}
}

func (r *Reconciler) recordStatus(siteID string, state domain.TrackState) {
	if r.deps.Board == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := r.deps.Board.SetStatus(ctx, siteID, state); err != nil {
		r.logger.Warn("failed to update status board", zap.String("site_id", siteID), zap.Error(err))
	}
}

// clearStatus removes the board entry of a site whose poll was cancelled.
func (r *Reconciler) clearStatus(siteID string) {
	if r.deps.Board == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := r.deps.Board.DeleteStatus(ctx, siteID); err != nil {
		r.logger.Warn("failed to clear status board", zap.String("site_id", siteID), zap.Error(err))
	}
}

func (r *Reconciler) incPoll(outcome string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.IncPoll(outcome)
	}
}

// updateGauge mirrors the tracking set size. Caller holds r.mu.
func (r *Reconciler) updateGauge() {
	if r.deps.Metrics != nil {
		r.deps.Metrics.TrackedSites.Set(float64(len(r.sites)))
	}
}
