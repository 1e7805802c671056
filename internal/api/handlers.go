package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/actions"
	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/internal/preview"
	"github.com/user/sitewatch/internal/theme"
)

const defaultOutcomeLimit = 50

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"reconciler": "healthy"}
	healthy := true
	for name, check := range s.deps.Checks {
		if err := check.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			s.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

func (s *Server) handleSitesPage(w http.ResponseWriter, r *http.Request) {
	html, err := s.deps.Table.HTML()
	if err != nil {
		s.logger.Error("failed to serialize site table", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not render site table")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reload(r.Context())
	if err != nil {
		s.logger.Error("page reload failed", zap.Error(err))
		s.respondWithError(w, http.StatusBadGateway, "Could not reload site list page")
		return
	}
	s.respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) handleListTracked(w http.ResponseWriter, r *http.Request) {
	tracked := s.deps.Reconciler.Snapshot()
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"tracked": tracked,
		"count":   len(tracked),
	})
}

type siteStateResponse struct {
	SiteID    string               `json:"site_id"`
	State     domain.TrackState    `json:"state,omitempty"`
	RowStatus string               `json:"row_status,omitempty"`
	Controls  []domain.CommandType `json:"controls"`
}

func (s *Server) handleSiteState(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	state, tracked := s.deps.Reconciler.State(siteID)
	rowStatus, hasRow := s.deps.Table.RowStatus(siteID)
	if !tracked && !hasRow {
		s.respondWithError(w, http.StatusNotFound, "Site not found")
		return
	}
	s.respondWithJSON(w, http.StatusOK, siteStateResponse{
		SiteID:    siteID,
		State:     state,
		RowStatus: rowStatus,
		Controls:  s.deps.Binder.Bound(siteID),
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if s.isTracked(siteID) {
		s.respondWithJSON(w, http.StatusOK, map[string]any{"site_id": siteID, "tracking": true})
		return
	}
	if !s.deps.Table.HasRow(siteID) {
		s.respondWithError(w, http.StatusNotFound, "Site row not found")
		return
	}

	// A new upload enters pending before its poll starts.
	prev, _ := s.deps.Table.RowStatus(siteID)
	if err := s.deps.Table.MarkStatus(siteID, domain.JobPending); err != nil {
		s.respondWithError(w, http.StatusNotFound, "Site row not found")
		return
	}
	if !s.deps.Reconciler.Track(siteID) {
		if s.isTracked(siteID) {
			s.respondWithJSON(w, http.StatusOK, map[string]any{"site_id": siteID, "tracking": true})
			return
		}
		if err := s.deps.Table.MarkStatus(siteID, prev); err != nil {
			s.logger.Warn("failed to restore row status", zap.String("site_id", siteID), zap.Error(err))
		}
		s.respondWithError(w, http.StatusServiceUnavailable, "Status polling is shut down")
		return
	}
	s.respondWithJSON(w, http.StatusAccepted, map[string]any{"site_id": siteID, "tracking": true})
}

func (s *Server) isTracked(siteID string) bool {
	for _, t := range s.deps.Reconciler.Snapshot() {
		if t.SiteID == siteID {
			return true
		}
	}
	return false
}

func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Reconciler.Untrack(chi.URLParam(r, "siteID")) {
		s.respondWithError(w, http.StatusNotFound, "Site is not being tracked")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commandRequest struct {
	Type    domain.CommandType `json:"type"`
	Name    string             `json:"name"`
	URL     string             `json:"url"`
	Checked bool               `json:"checked"`
}

func (c commandRequest) command(siteID string) (domain.Command, bool) {
	switch c.Type {
	case domain.CommandPreview:
		return domain.Preview{SiteID: siteID, URL: c.URL}, true
	case domain.CommandRename:
		return domain.Rename{SiteID: siteID, Name: c.Name}, true
	case domain.CommandDelete:
		return domain.Delete{SiteID: siteID, Name: c.Name}, true
	case domain.CommandTogglePublish:
		return domain.TogglePublish{SiteID: siteID, Checked: c.Checked}, true
	}
	return nil, false
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd, ok := req.command(chi.URLParam(r, "siteID"))
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Unknown command type: "+string(req.Type))
		return
	}

	res, err := s.deps.Binder.Dispatch(r.Context(), cmd)
	switch {
	case err == nil:
		s.respondWithJSON(w, http.StatusOK, res)
	case errors.Is(err, actions.ErrUnboundControl):
		s.respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, actions.ErrInvalidCommand), errors.Is(err, preview.ErrEmptyURL):
		s.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, actions.ErrRejected):
		s.respondWithError(w, http.StatusUnprocessableEntity, res.Message)
	default:
		s.respondWithError(w, http.StatusBadGateway, "Backend request failed")
	}
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		s.respondWithJSON(w, http.StatusOK, []*domain.Outcome{})
		return
	}
	limit := defaultOutcomeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	outcomes, err := s.deps.Journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read outcomes", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve outcomes")
		return
	}
	s.respondWithJSON(w, http.StatusOK, outcomes)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "after must be an integer")
			return
		}
		after = n
	}
	items := s.deps.Feed.Since(after)
	if items == nil {
		items = []domain.Notification{}
	}
	s.respondWithJSON(w, http.StatusOK, items)
}

type themeResponse struct {
	Theme theme.Theme `json:"theme"`
	Icon  string      `json:"icon"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Theme.Current(r.Context())
	if err != nil {
		s.logger.Error("failed to read theme", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not read theme")
		return
	}
	s.respondWithJSON(w, http.StatusOK, themeResponse{Theme: t, Icon: t.Icon()})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := s.deps.Theme.Set(r.Context(), req.Theme)
	if err != nil {
		if errors.Is(err, theme.ErrInvalidTheme) {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to save theme", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not save theme")
		return
	}
	s.respondWithJSON(w, http.StatusOK, themeResponse{Theme: t, Icon: t.Icon()})
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Theme.Toggle(r.Context())
	if err != nil {
		s.logger.Error("failed to toggle theme", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not toggle theme")
		return
	}
	s.respondWithJSON(w, http.StatusOK, themeResponse{Theme: t, Icon: t.Icon()})
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		code = http.StatusInternalServerError
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
