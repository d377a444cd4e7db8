package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"desmoines-weekly-events/internal/models"
	"desmoines-weekly-events/internal/services"
)

// ResponseBody represents the response body structure
type ResponseBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Source  string      `json:"source,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Values of ResponseBody.Source for activity responses
const (
	SourceDatabase         = "database"
	SourceLiveData         = "live-data"
	SourceLiveDataFallback = "live-data-fallback"
)

// SubscribeRequest is the body of POST /api/subscribe
type SubscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// DateRange is the body of GET /api/date-range
type DateRange struct {
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	FormattedRange string    `json:"formattedRange"`
}

// SnapshotStore looks up the stored snapshot for a week
type SnapshotStore interface {
	GetSnapshotForWeek(ctx context.Context, week models.WeekRange) (*models.WeeklySnapshot, error)
}

// LiveSnapshotSource returns the most recently published snapshot
type LiveSnapshotSource interface {
	DownloadLatestSnapshot(ctx context.Context) (*models.WeeklySnapshot, error)
}

// Subscriber records newsletter signups
type Subscriber interface {
	Subscribe(ctx context.Context, email, source string) (*services.SubscribeResult, error)
}

// RefreshTrigger starts a weekly refresh without waiting for it
type RefreshTrigger interface {
	TriggerRefresh(ctx context.Context) error
}

// Dependencies are the backends behind the handlers. Any of them may be nil.
type Dependencies struct {
	Snapshots     SnapshotStore
	Live          LiveSnapshotSource
	Subscriptions Subscriber
	Refresh       RefreshTrigger
	Location      *time.Location
	Now           func() time.Time
}

// Handler implements the public API independent of the transport
type Handler struct {
	snapshots     SnapshotStore
	live          LiveSnapshotSource
	subscriptions Subscriber
	refresh       RefreshTrigger
	location      *time.Location
	now           func() time.Time
}

// NewHandler creates a Handler
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		snapshots:     deps.Snapshots,
		live:          deps.Live,
		subscriptions: deps.Subscriptions,
		refresh:       deps.Refresh,
		location:      deps.Location,
		now:           deps.Now,
	}
	if h.location == nil {
		h.location = time.Local
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) currentWeek() models.WeekRange {
	return models.CurrentWeek(h.now().In(h.location))
}

// GetActivities handles GET /api/activities. The stored week is preferred
// unless useLiveData is set; either way the other store is the fallback.
func (h *Handler) GetActivities(ctx context.Context, useLiveData bool) (ResponseBody, int) {
	if useLiveData {
		if snapshot := h.loadLive(ctx); snapshot != nil {
			return ResponseBody{Success: true, Data: snapshot, Source: SourceLiveData}, http.StatusOK
		}
		log.Printf("[API] Live data not found, falling back to database")
	}

	var dbErr error
	if h.snapshots != nil {
		snapshot, err := h.snapshots.GetSnapshotForWeek(ctx, h.currentWeek())
		if err == nil {
			return ResponseBody{Success: true, Data: snapshot, Source: SourceDatabase}, http.StatusOK
		}
		if !errors.Is(err, services.ErrSnapshotNotFound) {
			log.Printf("[API] Database error, falling back to live data: %v", err)
			dbErr = err
		}
	}

	if snapshot := h.loadLive(ctx); snapshot != nil {
		log.Printf("[API] No activities in database, using live data as fallback")
		return ResponseBody{Success: true, Data: snapshot, Source: SourceLiveDataFallback}, http.StatusOK
	}

	if dbErr != nil {
		return ResponseBody{Success: false, Message: "Server error", Error: dbErr.Error()}, http.StatusInternalServerError
	}
	return ResponseBody{Success: false, Message: "No activities found for the current week"}, http.StatusNotFound
}

func (h *Handler) loadLive(ctx context.Context) *models.WeeklySnapshot {
	if h.live == nil {
		return nil
	}
	snapshot, err := h.live.DownloadLatestSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, services.ErrSnapshotNotFound) {
			log.Printf("[API] Failed to load live data: %v", err)
		}
		return nil
	}
	return snapshot
}

// GetLiveActivities handles GET /api/activities/live
func (h *Handler) GetLiveActivities(ctx context.Context) (ResponseBody, int) {
	if h.live == nil {
		return ResponseBody{Success: false, Message: "Live activities data not found"}, http.StatusNotFound
	}
	snapshot, err := h.live.DownloadLatestSnapshot(ctx)
	if errors.Is(err, services.ErrSnapshotNotFound) {
		return ResponseBody{Success: false, Message: "Live activities data not found"}, http.StatusNotFound
	}
	if err != nil {
		log.Printf("[API] Error fetching live activities: %v", err)
		return ResponseBody{Success: false, Message: "Server error", Error: err.Error()}, http.StatusInternalServerError
	}
	return ResponseBody{Success: true, Data: snapshot}, http.StatusOK
}

// GetDateRange handles GET /api/date-range
func (h *Handler) GetDateRange() (ResponseBody, int) {
	week := h.currentWeek()
	return ResponseBody{
		Success: true,
		Data: DateRange{
			StartDate:      week.Start,
			EndDate:        week.End,
			FormattedRange: week.FormattedRange(),
		},
	}, http.StatusOK
}

// Subscribe handles POST /api/subscribe
func (h *Handler) Subscribe(ctx context.Context, body []byte) (ResponseBody, int) {
	var req SubscribeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ResponseBody{Success: false, Message: "Invalid request body"}, http.StatusBadRequest
	}
	if h.subscriptions == nil {
		return ResponseBody{Success: false, Message: "Subscriptions are not available"}, http.StatusServiceUnavailable
	}

	result, err := h.subscriptions.Subscribe(ctx, req.Email, req.Source)
	if errors.Is(err, services.ErrInvalidEmail) {
		return ResponseBody{Success: false, Message: "Invalid email address"}, http.StatusBadRequest
	}
	if err != nil {
		log.Printf("[API] Error subscribing email: %v", err)
		return ResponseBody{Success: false, Message: "Server error"}, http.StatusInternalServerError
	}

	if result.AlreadySubscribed {
		return ResponseBody{Success: true, Message: "You are already subscribed to our newsletter!"}, http.StatusOK
	}
	return ResponseBody{Success: true, Message: "Thank you for subscribing! Check your email for confirmation."}, http.StatusOK
}

// TriggerRefresh handles POST /api/refresh
func (h *Handler) TriggerRefresh(ctx context.Context) (ResponseBody, int) {
	if h.refresh == nil {
		return ResponseBody{Success: false, Message: "Refresh is not configured"}, http.StatusServiceUnavailable
	}
	err := h.refresh.TriggerRefresh(ctx)
	if errors.Is(err, services.ErrRefreshNotConfigured) {
		return ResponseBody{Success: false, Message: "Refresh is not configured"}, http.StatusServiceUnavailable
	}
	if err != nil {
		log.Printf("[API] Failed to trigger refresh: %v", err)
		return ResponseBody{Success: false, Message: "Failed to trigger refresh"}, http.StatusInternalServerError
	}
	return ResponseBody{Success: true, Message: "Weekly refresh triggered"}, http.StatusAccepted
}
