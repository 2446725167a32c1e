// Package api exposes HTTP handlers for workout ingestion and analytics.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/workoutlog/internal/analytics"
	"example.com/workoutlog/internal/auth"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/logparse"
	"example.com/workoutlog/internal/persistence"
)

// maxSubmissionBytes bounds the request body of an ingestion call.
const maxSubmissionBytes = 1 << 20

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/history", h.history)
	mux.HandleFunc("/v1/dashboard", h.dashboard)
	mux.HandleFunc("/v1/leaderboard", h.leaderboard)
	mux.HandleFunc("/v1/account", h.account)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingest(w, r)
	case http.MethodGet:
		h.workoutsForDay(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var occurredAt time.Time
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	stored, err := h.service.IngestWorkouts(r.Context(), domain.IngestInput{
		OwnerID:    claims.Subject,
		Text:       req.WorkoutString,
		OccurredAt: occurredAt,
	})
	if err != nil {
		writeIngestError(w, err)
		return
	}

	resp := IngestResponse{Workouts: toWorkoutViews(stored)}
	for _, workout := range stored {
		resp.TotalCalories += workout.CaloriesBurned
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeIngestError(w http.ResponseWriter, err error) {
	var (
		malformed *logparse.MalformedSubmissionError
		storage   *domain.StorageError
	)
	switch {
	case errors.As(err, &malformed):
		record := malformed.Record
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Type:        "malformed_submission",
			Detail:      malformed.Error(),
			RecordIndex: &record,
			Field:       string(malformed.Field),
		})
	case errors.Is(err, logparse.ErrNoCategoriesFound):
		writeError(w, http.StatusBadRequest, "no_categories", err.Error())
	case errors.As(err, &storage):
		persisted := storage.Persisted
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Type:      "storage_error",
			Detail:    "workouts could not be stored",
			Persisted: &persisted,
		})
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func (h *Handler) workoutsForDay(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeWorkoutsRead)
	if !ok {
		return
	}
	day, ok := h.parseDay(w, r)
	if !ok {
		return
	}

	workouts, total, err := h.service.WorkoutsForDay(r.Context(), claims.Subject, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DayWorkoutsResponse{
		Date:          day.Format(analytics.DayLabelLayout),
		Workouts:      toWorkoutViews(workouts),
		TotalCalories: total,
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopeWorkoutsRead)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	workouts, next, err := h.service.ListWorkouts(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{
		Items:      toWorkoutViews(workouts),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopeWorkoutsRead)
	if !ok {
		return
	}
	day, ok := h.parseDay(w, r)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(r.Context(), claims.Subject, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{Today: dash.Today, Weekly: dash.Weekly})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := authorize(w, r, auth.ScopeWorkoutsRead); !ok {
		return
	}
	day, ok := h.parseDay(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Leaderboard(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Date:    day.Format(analytics.DayLabelLayout),
		Entries: entries,
	})
}

// parseDay reads the optional date query parameter in the service time zone.
// An absent date means today.
// account lets the token subject set the name and avatar shown on the leaderboard.
func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req AccountRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), domain.Account{
		ID:          claims.Subject,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	switch {
	case errors.Is(err, domain.ErrNoAccountDirectory):
		writeError(w, http.StatusNotImplemented, "not_supported", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, AccountView{
		OwnerID:     account.ID,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
	})
}

func (h *Handler) parseDay(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.service.Today(), true
	}
	day, err := time.ParseInLocation(analytics.DayLabelLayout, raw, h.service.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

// authorize requires claims carrying scope. Write access implies read access.
func authorize(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) && !(scope == auth.ScopeWorkoutsRead && claims.HasScope(auth.ScopeWorkoutsWrite)) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

// IngestRequest is the payload for POST /v1/workouts.
type IngestRequest struct {
	WorkoutString string     `json:"workout_string"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

// Validate ensures request correctness.
func (r IngestRequest) Validate() error {
	if strings.TrimSpace(r.WorkoutString) == "" {
		return errors.New("workout_string is required")
	}
	return nil
}

// AccountRequest carries the leaderboard display fields of the caller.
type AccountRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// AccountView is the stored directory entry.
type AccountView struct {
	OwnerID     string `json:"owner_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// WorkoutView exposes a stored workout record.
type WorkoutView struct {
	WorkoutID      string    `json:"workout_id"`
	Category       string    `json:"category"`
	Name           string    `json:"name"`
	Sets           int       `json:"sets"`
	Reps           int       `json:"reps"`
	WeightKg       float64   `json:"weight_kg"`
	DurationMin    float64   `json:"duration_min"`
	CaloriesBurned float64   `json:"calories_burned"`
	OccurredAt     time.Time `json:"occurred_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// IngestResponse lists the records stored for a submission.
type IngestResponse struct {
	Workouts      []WorkoutView `json:"workouts"`
	TotalCalories float64       `json:"total_calories"`
}

// DayWorkoutsResponse lists one day of an owner's workouts.
type DayWorkoutsResponse struct {
	Date          string        `json:"date"`
	Workouts      []WorkoutView `json:"workouts"`
	TotalCalories float64       `json:"total_calories"`
}

// ListWorkoutsResponse packages history results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// DashboardResponse carries today's summary, including the category
// breakdown, and the seven-day series ending today.
type DashboardResponse struct {
	Today  domain.DailySummary   `json:"today"`
	Weekly []domain.DailySummary `json:"weekly"`
}

// LeaderboardResponse ranks accounts for one day.
type LeaderboardResponse struct {
	Date    string                    `json:"date"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

type errorResponse struct {
	Type        string `json:"type"`
	Detail      string `json:"detail"`
	RecordIndex *int   `json:"record_index,omitempty"`
	Field       string `json:"field,omitempty"`
	Persisted   *int   `json:"persisted,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toWorkoutViews(workouts []domain.Workout) []WorkoutView {
	views := make([]WorkoutView, 0, len(workouts))
	for _, w := range workouts {
		views = append(views, WorkoutView{
			WorkoutID:      w.ID,
			Category:       w.Category,
			Name:           w.Name,
			Sets:           w.Sets,
			Reps:           w.Reps,
			WeightKg:       w.WeightKg,
			DurationMin:    w.DurationMin,
			CaloriesBurned: w.CaloriesBurned,
			OccurredAt:     w.OccurredAt,
			CreatedAt:      w.CreatedAt,
		})
	}
	return views
}
