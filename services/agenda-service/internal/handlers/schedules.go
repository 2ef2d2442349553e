package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/storage"
)

// ScheduleHandler manages the weekly schedule templates. It sits behind the
// admin token middleware; validation happens here so bad templates never
// reach the engine.
type ScheduleHandler struct {
	repo   *storage.ScheduleRepository
	logger *slog.Logger
}

func NewScheduleHandler(repo *storage.ScheduleRepository, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

type upsertScheduleRequest struct {
	ProfessionalID string `json:"professional_id"`
	Weekday        int    `json:"weekday"`
	WorkStart      string `json:"work_start"`
	WorkEnd        string `json:"work_end"`
	LunchStart     string `json:"lunch_start"`
	LunchEnd       string `json:"lunch_end"`
	SlotMinutes    int    `json:"slot_minutes"`
}

type scheduleItem struct {
	ScheduleID     string `json:"schedule_id"`
	ProfessionalID string `json:"professional_id"`
	Weekday        int    `json:"weekday"`
	WorkStart      string `json:"work_start"`
	WorkEnd        string `json:"work_end"`
	LunchStart     string `json:"lunch_start,omitempty"`
	LunchEnd       string `json:"lunch_end,omitempty"`
	SlotMinutes    int    `json:"slot_minutes"`
}

// Handle dispatches on method: PUT upserts one weekday row, GET lists a
// professional's week, DELETE removes one weekday row.
func (h *ScheduleHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.upsert(w, r)
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	sched := model.WeeklySchedule{
		ProfessionalID: strings.TrimSpace(req.ProfessionalID),
		Weekday:        time.Weekday(req.Weekday),
		WorkStart:      strings.TrimSpace(req.WorkStart),
		WorkEnd:        strings.TrimSpace(req.WorkEnd),
		LunchStart:     strings.TrimSpace(req.LunchStart),
		LunchEnd:       strings.TrimSpace(req.LunchEnd),
		SlotMinutes:    req.SlotMinutes,
	}
	if err := sched.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	id, err := h.repo.Upsert(r.Context(), sched)
	if err != nil {
		h.logger.Error("schedule upsert failed", "err", err, "professional_id", sched.ProfessionalID)
		http.Error(w, "failed to save schedule", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"schedule_id": id})
}

func (h *ScheduleHandler) list(w http.ResponseWriter, r *http.Request) {
	professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
	if professionalID == "" {
		http.Error(w, "professional_id required", http.StatusBadRequest)
		return
	}

	scheds, err := h.repo.ListByProfessional(r.Context(), professionalID)
	if err != nil {
		http.Error(w, "failed to list schedules", http.StatusInternalServerError)
		return
	}

	items := make([]scheduleItem, 0, len(scheds))
	for _, s := range scheds {
		items = append(items, scheduleItem{
			ScheduleID:     s.ID,
			ProfessionalID: s.ProfessionalID,
			Weekday:        int(s.Weekday),
			WorkStart:      s.WorkStart,
			WorkEnd:        s.WorkEnd,
			LunchStart:     s.LunchStart,
			LunchEnd:       s.LunchEnd,
			SlotMinutes:    s.SlotMinutes,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) delete(w http.ResponseWriter, r *http.Request) {
	professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
	weekdayStr := strings.TrimSpace(r.URL.Query().Get("weekday"))
	if professionalID == "" || weekdayStr == "" {
		http.Error(w, "professional_id and weekday are required", http.StatusBadRequest)
		return
	}
	weekday, err := parseWeekday(weekdayStr)
	if err != nil {
		http.Error(w, "invalid weekday", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), professionalID, weekday); err != nil {
		http.Error(w, "failed to delete schedule", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseWeekday(s string) (time.Weekday, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < int(time.Sunday) || n > int(time.Saturday) {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return time.Weekday(n), nil
}
