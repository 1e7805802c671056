package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/actions"
	"github.com/user/sitewatch/internal/config"
	"github.com/user/sitewatch/internal/monitoring"
	"github.com/user/sitewatch/internal/notify"
	"github.com/user/sitewatch/internal/reconciler"
	"github.com/user/sitewatch/internal/render"
	"github.com/user/sitewatch/internal/repository"
	"github.com/user/sitewatch/internal/theme"
)

// PageLoader opens a fresh copy of the site list page.
type PageLoader func(ctx context.Context) (io.ReadCloser, error)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the server exposes. Journal and Checks are optional.
type Deps struct {
	Reconciler *reconciler.Reconciler
	Binder     *actions.Binder
	Table      *render.Table
	Feed       *notify.Feed
	Theme      *theme.Preference
	Journal    repository.OutcomeRepository
	Loader     PageLoader
	Checks     map[string]Pinger
	Metrics    *monitoring.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	deps       Deps
	router     http.Handler
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		config: cfg,
		deps:   d,
		logger: d.Logger,
	}
	s.router = s.setupRouter()
	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ReloadResult reports what a page load picked up.
type ReloadResult struct {
	Rows     int `json:"rows"`
	Bound    int `json:"bound"`
	Tracking int `json:"tracking"`
}

// Reload replaces the table with a fresh page, binds completed rows and resumes
// polling every pending one.
func (s *Server) Reload(ctx context.Context) (ReloadResult, error) {
	body, err := s.deps.Loader(ctx)
	if err != nil {
		return ReloadResult{}, fmt.Errorf("loading page: %w", err)
	}
	defer body.Close()

	if err := s.deps.Table.Replace(body); err != nil {
		return ReloadResult{}, err
	}
	ids := s.deps.Table.SiteIDs()
	res := ReloadResult{
		Rows:     len(ids),
		Bound:    s.deps.Binder.BindAll(ids),
		Tracking: s.deps.Reconciler.TrackPending(s.deps.Table),
	}
	s.logger.Info("page loaded", zap.Int("rows", res.Rows), zap.Int("bound", res.Bound), zap.Int("tracking", res.Tracking))
	return res, nil
}
