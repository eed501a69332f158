package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/meetsched/internal/model"
	"github.com/md-rashed-zaman/meetsched/internal/schedule"
)

// ScheduleHandler is the HTTP boundary over the scheduling engine: JSON
// mapping, input validation, and error translation. The engine itself never
// sees malformed input.
type ScheduleHandler struct {
	svc         *schedule.Service
	logger      *slog.Logger
	now         func() time.Time
	minDuration int
	maxDuration int
}

func NewScheduleHandler(svc *schedule.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		svc:         svc,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		minDuration: 15,
		maxDuration: 480,
	}
}

// WithDurationBounds overrides the slot granularity accepted on writes.
func (h *ScheduleHandler) WithDurationBounds(min, max int) *ScheduleHandler {
	if min > 0 && max >= min {
		h.minDuration, h.maxDuration = min, max
	}
	return h
}

func (h *ScheduleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/users/{user_id}/settings", h.Settings)
	mux.HandleFunc("/api/v1/users/{user_id}/schedule", h.Schedule)
	mux.HandleFunc("/api/v1/users/{user_id}/schedule/overlap/{attendee_id}", h.Overlap)
	mux.HandleFunc("/api/v1/users/{user_id}/events", h.CreateEvent)
}

type availabilityRulePayload struct {
	Day   string      `json:"day"`
	Hours [][2]string `json:"hours"`
}

type settingsResponse struct {
	UserID            string                    `json:"user_id"`
	DurationMinutes   int                       `json:"duration_minutes"`
	Timezone          string                    `json:"timezone"`
	MaxLookaheadDays  int                       `json:"max_lookahead_days"`
	AvailabilityRules []availabilityRulePayload `json:"availability_rules"`
	UpdatedAt         string                    `json:"updated_at"`
}

type updateSettingsRequest struct {
	UserID            string                    `json:"user_id"`
	DurationMinutes   int                       `json:"duration_minutes"`
	Timezone          string                    `json:"timezone"`
	AvailabilityRules []availabilityRulePayload `json:"availability_rules"`
}

type eventItem struct {
	EventID         string `json:"event_id"`
	OrganizerID     string `json:"organizer_id"`
	AttendeeID      string `json:"attendee_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

type dayItem struct {
	Date   string      `json:"date"`
	Slots  []string    `json:"slots"`
	Events []eventItem `json:"events"`
}

type scheduleResponse struct {
	UserID          string    `json:"user_id"`
	DurationMinutes int       `json:"duration_minutes"`
	Timezone        string    `json:"timezone"`
	Days            []dayItem `json:"days"`
}

type createEventRequest struct {
	EventID         string `json:"event_id"`
	OrganizerID     string `json:"organizer_id"`
	AttendeeID      string `json:"attendee_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

type createEventResponse struct {
	EventID string `json:"event_id"`
}

func (h *ScheduleHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w, r)
	case http.MethodPut:
		h.updateSettings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ScheduleHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !validUserID(userID) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	settings, err := h.svc.Settings(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	rules := make([]availabilityRulePayload, 0, len(settings.Rules))
	for _, rule := range settings.Rules {
		rules = append(rules, availabilityRulePayload{Day: rule.Day, Hours: rule.Hours})
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		UserID:            settings.UserID,
		DurationMinutes:   settings.DurationMinutes,
		Timezone:          settings.Timezone,
		MaxLookaheadDays:  settings.MaxLookaheadDays,
		AvailabilityRules: rules,
		UpdatedAt:         settings.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *ScheduleHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !validUserID(userID) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UserID != userID {
		// Updating another user's settings is not allowed.
		writeError(w, http.StatusUnauthorized, "user id mismatch")
		return
	}
	if err := validateDuration(req.DurationMinutes, h.minDuration, h.maxDuration); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateTimezone(req.Timezone); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules := make([]model.AvailabilityRule, 0, len(req.AvailabilityRules))
	for _, rule := range req.AvailabilityRules {
		rules = append(rules, model.AvailabilityRule{Day: strings.ToLower(rule.Day), Hours: rule.Hours})
	}
	if err := validateRules(rules); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.UpdateSettings(r.Context(), model.UserSettings{
		UserID:          userID,
		DurationMinutes: req.DurationMinutes,
		Timezone:        req.Timezone,
		Rules:           rules,
	}, h.now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.PathValue("user_id")
	if !validUserID(userID) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	targetTZ := strings.TrimSpace(r.URL.Query().Get("timezone"))
	if targetTZ != "" {
		if err := validateTimezone(targetTZ); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sched, err := h.svc.BuildSchedule(r.Context(), userID, targetTZ, h.now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

func (h *ScheduleHandler) Overlap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.PathValue("user_id")
	attendeeID := r.PathValue("attendee_id")
	if !validUserID(userID) || !validUserID(attendeeID) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	sched, err := h.svc.BuildOverlapSchedule(r.Context(), userID, attendeeID, h.now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

func (h *ScheduleHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.PathValue("user_id")
	if !validUserID(userID) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.OrganizerID != userID {
		// Adding an event to someone else's schedule is not allowed.
		writeError(w, http.StatusUnauthorized, "organizer id mismatch")
		return
	}
	if !validUserID(req.AttendeeID) {
		writeError(w, http.StatusBadRequest, "invalid attendee id")
		return
	}
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		eventID = uuid.NewString()
	} else if _, err := uuid.Parse(eventID); err != nil {
		writeError(w, http.StatusBadRequest, "event_id must be a UUID")
		return
	}
	if err := validateDuration(req.DurationMinutes, h.minDuration, h.maxDuration); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	err = h.svc.BookEvent(r.Context(), model.Event{
		EventID:         eventID,
		OrganizerID:     req.OrganizerID,
		AttendeeID:      req.AttendeeID,
		StartTime:       startTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           strings.TrimSpace(req.Notes),
	}, h.now())
	if err != nil {
		if schedule.IsDomainError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createEventResponse{EventID: eventID})
}

func toScheduleResponse(sched model.Schedule) scheduleResponse {
	days := make([]dayItem, 0, len(sched.Days))
	for _, day := range sched.Days {
		item := dayItem{
			Date:   day.Date,
			Slots:  day.Slots,
			Events: make([]eventItem, 0, len(day.Events)),
		}
		if item.Slots == nil {
			item.Slots = []string{}
		}
		for _, e := range day.Events {
			item.Events = append(item.Events, eventItem{
				EventID:         e.EventID,
				OrganizerID:     e.OrganizerID,
				AttendeeID:      e.AttendeeID,
				StartTime:       e.StartTime.Format(time.RFC3339),
				DurationMinutes: e.DurationMinutes,
				Notes:           e.Notes,
			})
		}
		days = append(days, item)
	}
	return scheduleResponse{
		UserID:          sched.UserID,
		DurationMinutes: sched.DurationMinutes,
		Timezone:        sched.Timezone,
		Days:            days,
	}
}

func (h *ScheduleHandler) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, schedule.ErrSettingsNotFound) {
		writeError(w, http.StatusNotFound, "user settings not found")
		return
	}
	h.logger.Error("schedule engine error", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
