package domain

import "time"

// TrackState is the reconciler's view of a site row.
type TrackState string

const (
	StatePending   TrackState = "pending"
	StateCompleted TrackState = "completed"
	StateFailed    TrackState = "failed"
	StateTimedOut  TrackState = "timeout"
)

// Terminal reports whether no further transition can leave s.
func (s TrackState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// Job statuses reported by the hosting backend.
const (
	JobPending   = "pending"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// SiteStatus is the payload of the backend status endpoint.
type SiteStatus struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"` // "pending", "completed", "failed"
	IsPublished  bool   `json:"is_published"`
	OSSURL       string `json:"oss_url"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// StatusResponse wraps SiteStatus the way the backend sends it.
type StatusResponse struct {
	Success bool        `json:"success"`
	Data    *SiteStatus `json:"data,omitempty"`
	Msg     string      `json:"msg,omitempty"`
}

// ToggleResponse is returned by the visibility toggle endpoint.
type ToggleResponse struct {
	Success     bool   `json:"success"`
	IsPublished bool   `json:"is_published"`
	Msg         string `json:"msg"`
}

// RenameResponse is returned by the rename endpoint.
type RenameResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	NewName string `json:"new_name,omitempty"`
}

// DeleteResponse is returned by the delete endpoint.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// TrackedSnapshot is a read-only copy of a tracked site.
type TrackedSnapshot struct {
	SiteID       string     `json:"site_id"`
	State        TrackState `json:"state"`
	AttemptCount int        `json:"attempt_count"`
	MaxAttempts  int        `json:"max_attempts"`
	StartedAt    time.Time  `json:"started_at"`
}

// Outcome records a terminal transition.
type Outcome struct {
	SiteID     string     `json:"site_id"`
	SiteName   string     `json:"site_name,omitempty"`
	State      TrackState `json:"state"`
	Attempts   int        `json:"attempts"`
	Message    string     `json:"message,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}
