package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/engine"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/outbox"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/storage"
)

// AgendaHandler exposes the availability engine over HTTP. Booking and
// reschedule run the engine's validation inside a transaction holding
// per-professional (and per-room) advisory locks, which is the serialization
// scope the stateless engine requires between its conflict read and the
// subsequent write.
type AgendaHandler struct {
	engine     *engine.Engine
	appts      *storage.AppointmentRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewAgendaHandler(eng *engine.Engine, appts *storage.AppointmentRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *AgendaHandler {
	return &AgendaHandler{
		engine:     eng,
		appts:      appts,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

type bookAppointmentRequest struct {
	ProfessionalID  string `json:"professional_id"`
	RoomID          string `json:"room_id"`
	PatientName     string `json:"patient_name"`
	PatientContact  string `json:"patient_contact"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Force           bool   `json:"force"`
}

type bookAppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
}

type rescheduleRequest struct {
	AppointmentID   string `json:"appointment_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	RoomID          string `json:"room_id"`
	Force           bool   `json:"force"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

type rejectionResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason"`
	ConflictID string `json:"conflict_id,omitempty"`
}

type appointmentItem struct {
	AppointmentID   string `json:"appointment_id"`
	ProfessionalID  string `json:"professional_id"`
	RoomID          string `json:"room_id,omitempty"`
	PatientName     string `json:"patient_name"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
}

type slotsResponse struct {
	ProfessionalID  string   `json:"professional_id"`
	Date            string   `json:"date"`
	DurationMinutes int      `json:"duration_minutes"`
	Slots           []string `json:"slots"`
}

// Availability answers the pure boolean form: can this professional take the
// interval. No room check, no reason detail.
func (h *AgendaHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
	startStr := strings.TrimSpace(r.URL.Query().Get("start"))
	durationStr := strings.TrimSpace(r.URL.Query().Get("duration_minutes"))
	if professionalID == "" || startStr == "" || durationStr == "" {
		http.Error(w, "professional_id, start, and duration_minutes are required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	duration, err := strconv.Atoi(durationStr)
	if err != nil || duration <= 0 {
		http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
		return
	}

	available, err := h.engine.CheckAvailability(r.Context(), engine.BookingCandidate{
		ProfessionalID:  professionalID,
		Start:           start,
		DurationMinutes: duration,
	})
	if err != nil {
		h.logger.Error("availability check failed", "err", err)
		http.Error(w, "failed to check availability", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// Slots lists the free start times for one professional and date.
func (h *AgendaHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if professionalID == "" || dateStr == "" {
		http.Error(w, "professional_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	duration := 30
	if v := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = n
	}

	slots, err := h.engine.AvailableSlots(r.Context(), professionalID, day, duration)
	if err != nil {
		h.logger.Error("slot enumeration failed", "err", err)
		http.Error(w, "failed to list slots", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, slotsResponse{
		ProfessionalID:  professionalID,
		Date:            dateStr,
		DurationMinutes: duration,
		Slots:           slots,
	})
}

// Book creates an appointment after full validation under advisory locks.
func (h *AgendaHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.PatientName = strings.TrimSpace(req.PatientName)
	if req.ProfessionalID == "" || req.PatientName == "" {
		http.Error(w, "professional_id and patient_name are required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cand := engine.BookingCandidate{
		ProfessionalID:  req.ProfessionalID,
		RoomID:          req.RoomID,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Force:           req.Force,
	}
	if rej, ok := h.validateLocked(ctx, tx, w, cand); !ok || rej {
		return
	}

	appt := &model.Appointment{
		ProfessionalID:  req.ProfessionalID,
		RoomID:          req.RoomID,
		PatientName:     req.PatientName,
		PatientContact:  strings.TrimSpace(req.PatientContact),
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Status:          model.StatusScheduled,
	}
	id, err := h.appts.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id

	if !h.emitAppointmentEvent(ctx, tx, w, outbox.EventAppointmentBooked, appt, nil) {
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, bookAppointmentResponse{AppointmentID: id})
}

// Reschedule moves an existing appointment, re-running the full validation
// with the appointment itself excluded from conflict detection.
func (h *AgendaHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appts.GetForUpdate(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status != model.StatusScheduled {
		http.Error(w, "appointment cannot be rescheduled", http.StatusConflict)
		return
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = appt.RoomID
	}
	cand := engine.BookingCandidate{
		ProfessionalID:       appt.ProfessionalID,
		RoomID:               roomID,
		Start:                start,
		DurationMinutes:      req.DurationMinutes,
		ExcludeAppointmentID: appt.ID,
		Force:                req.Force,
	}
	if rej, ok := h.validateLocked(ctx, tx, w, cand); !ok || rej {
		return
	}

	if err := h.appts.Reschedule(ctx, tx, appt.ID, start, req.DurationMinutes, roomID); err != nil {
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	moved := appt
	moved.StartTime = start
	moved.DurationMinutes = req.DurationMinutes
	moved.RoomID = roomID
	extra := map[string]any{
		"previous_start_time": appt.StartTime.UTC().Format(time.RFC3339),
	}
	if !h.emitAppointmentEvent(ctx, tx, w, outbox.EventAppointmentRescheduled, &moved, extra) {
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, bookAppointmentResponse{AppointmentID: appt.ID})
}

// Cancel is idempotent: cancelling an already-cancelled appointment returns
// the original cancellation.
func (h *AgendaHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appts.GetForUpdate(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	if appt.Status == model.StatusCancelled && appt.CancelledAt != nil {
		writeJSON(w, http.StatusOK, cancelResponse{
			AppointmentID: appt.ID,
			Status:        string(model.StatusCancelled),
			CancelledAt:   appt.CancelledAt.UTC().Format(time.RFC3339),
		})
		return
	}
	if appt.Status == model.StatusFinished {
		http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.appts.Cancel(ctx, tx, appt.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	extra := map[string]any{
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
		"reason":       strings.TrimSpace(req.Reason),
	}
	if !h.emitAppointmentEvent(ctx, tx, w, outbox.EventAppointmentCancelled, &appt, extra) {
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{
		AppointmentID: appt.ID,
		Status:        string(model.StatusCancelled),
		CancelledAt:   cancelledAt.UTC().Format(time.RFC3339),
	})
}

func (h *AgendaHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
	if professionalID == "" {
		http.Error(w, "professional_id required", http.StatusBadRequest)
		return
	}

	var appts []model.Appointment
	var err error
	if dateStr := strings.TrimSpace(r.URL.Query().Get("date")); dateStr != "" {
		day, parseErr := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if parseErr != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		appts, err = h.appts.OnDateByProfessional(r.Context(), professionalID, day)
	} else {
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if n, atoiErr := strconv.Atoi(raw); atoiErr == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		appts, err = h.appts.ListByProfessional(r.Context(), professionalID, limit)
	}
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := appointmentItem{
			AppointmentID:   appt.ID,
			ProfessionalID:  appt.ProfessionalID,
			RoomID:          appt.RoomID,
			PatientName:     appt.PatientName,
			StartTime:       appt.StartTime.UTC().Format(time.RFC3339),
			EndTime:         appt.EndTime().UTC().Format(time.RFC3339),
			DurationMinutes: appt.DurationMinutes,
			Status:          string(appt.Status),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// validateLocked takes the advisory locks, runs ValidateForBooking, and
// writes the rejection response when the candidate is refused. The bool pair
// is (rejectionWritten, ok): ok is false when an internal error was already
// written.
func (h *AgendaHandler) validateLocked(ctx context.Context, tx pgx.Tx, w http.ResponseWriter, cand engine.BookingCandidate) (bool, bool) {
	if err := h.appts.LockProfessional(ctx, tx, cand.ProfessionalID); err != nil {
		http.Error(w, "failed to lock professional agenda", http.StatusInternalServerError)
		return false, false
	}
	if cand.RoomID != "" {
		if err := h.appts.LockRoom(ctx, tx, cand.RoomID); err != nil {
			http.Error(w, "failed to lock room agenda", http.StatusInternalServerError)
			return false, false
		}
	}

	rej, err := h.engine.ValidateForBooking(ctx, cand)
	if err != nil {
		h.logger.Error("booking validation failed", "err", err)
		http.Error(w, "failed to validate booking", http.StatusInternalServerError)
		return false, false
	}
	if rej != nil {
		writeJSON(w, rejectionStatus(rej.Reason), rejectionResponse{
			Error:      rejectionMessage(rej.Reason),
			Reason:     string(rej.Reason),
			ConflictID: rej.ConflictID,
		})
		return true, true
	}
	return false, true
}

func (h *AgendaHandler) emitAppointmentEvent(ctx context.Context, tx pgx.Tx, w http.ResponseWriter, eventType string, appt *model.Appointment, extra map[string]any) bool {
	payload := map[string]any{
		"appointment_id":   appt.ID,
		"professional_id":  appt.ProfessionalID,
		"patient_name":     appt.PatientName,
		"start_time":       appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":         appt.EndTime().UTC().Format(time.RFC3339),
		"duration_minutes": appt.DurationMinutes,
	}
	if appt.RoomID != "" {
		payload["room_id"] = appt.RoomID
	}
	for k, v := range extra {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return false
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       body,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return false
	}
	return true
}

// rejectionStatus maps conflict reasons to 409 and schedule-shape reasons to
// 422, so clients can distinguish "try another time" from "fix the request".
func rejectionStatus(reason engine.Reason) int {
	switch reason {
	case engine.ReasonProfessionalConflict, engine.ReasonRoomConflict:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func rejectionMessage(reason engine.Reason) string {
	switch reason {
	case engine.ReasonNoScheduleForWeekday:
		return "professional has no schedule for this weekday"
	case engine.ReasonOutsideWorkHours:
		return "requested time is outside work hours"
	case engine.ReasonInLunchBreak:
		return "requested time falls in the lunch break"
	case engine.ReasonInvalidSlotDuration:
		return "duration is not a multiple of the slot size"
	case engine.ReasonProfessionalConflict:
		return "professional already has an appointment in this interval"
	case engine.ReasonRoomConflict:
		return "room is already booked in this interval"
	default:
		return "booking rejected"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
