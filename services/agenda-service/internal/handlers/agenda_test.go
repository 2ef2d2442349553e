package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/engine"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

type stubSchedules struct {
	sched *model.WeeklySchedule
}

func (s stubSchedules) GetForWeekday(context.Context, string, time.Weekday) (*model.WeeklySchedule, error) {
	return s.sched, nil
}

type stubAppointments struct {
	appts []model.Appointment
}

func (s stubAppointments) InWindowByProfessional(context.Context, string, time.Time, time.Time) ([]model.Appointment, error) {
	return s.appts, nil
}

func (s stubAppointments) InWindowByRoom(context.Context, string, time.Time, time.Time) ([]model.Appointment, error) {
	return nil, nil
}

func (s stubAppointments) OnDateByProfessional(context.Context, string, time.Time) ([]model.Appointment, error) {
	return s.appts, nil
}

func testHandler(sched *model.WeeklySchedule, appts []model.Appointment) *AgendaHandler {
	eng := engine.New(stubSchedules{sched: sched}, stubAppointments{appts: appts})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAgendaHandler(eng, nil, nil, logger)
}

func weekSchedule() *model.WeeklySchedule {
	return &model.WeeklySchedule{
		ID:             "sched-1",
		ProfessionalID: "prof-1",
		Weekday:        time.Monday,
		WorkStart:      "09:00",
		WorkEnd:        "12:00",
		SlotMinutes:    30,
	}
}

func TestAvailabilityFreeSlot(t *testing.T) {
	h := testHandler(weekSchedule(), nil)

	q := url.Values{}
	q.Set("professional_id", "prof-1")
	q.Set("start", "2026-01-05T09:00:00Z")
	q.Set("duration_minutes", "30")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/availability?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp["available"] {
		t.Fatal("expected available = true")
	}
}

func TestAvailabilityOutsideWorkHours(t *testing.T) {
	h := testHandler(weekSchedule(), nil)

	q := url.Values{}
	q.Set("professional_id", "prof-1")
	q.Set("start", "2026-01-05T18:00:00Z")
	q.Set("duration_minutes", "30")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/availability?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["available"] {
		t.Fatal("expected available = false")
	}
}

func TestAvailabilityMissingParams(t *testing.T) {
	h := testHandler(weekSchedule(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/availability?professional_id=prof-1", nil)
	rec := httptest.NewRecorder()

	h.Availability(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAvailabilityRejectsPost(t *testing.T) {
	h := testHandler(weekSchedule(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/availability", nil)
	rec := httptest.NewRecorder()

	h.Availability(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestSlotsListsFreeStarts(t *testing.T) {
	busy := model.Appointment{
		ID:              "appt-1",
		ProfessionalID:  "prof-1",
		StartTime:       time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          model.StatusScheduled,
	}
	h := testHandler(weekSchedule(), []model.Appointment{busy})

	q := url.Values{}
	q.Set("professional_id", "prof-1")
	q.Set("date", "2026-01-05")
	q.Set("duration_minutes", "30")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp slotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []string{"09:00", "09:30", "10:30", "11:00", "11:30"}
	if len(resp.Slots) != len(want) {
		t.Fatalf("slots = %v, want %v", resp.Slots, want)
	}
	for i, slot := range want {
		if resp.Slots[i] != slot {
			t.Fatalf("slots[%d] = %q, want %q", i, resp.Slots[i], slot)
		}
	}
}

func TestSlotsDefaultsDuration(t *testing.T) {
	h := testHandler(weekSchedule(), nil)

	q := url.Values{}
	q.Set("professional_id", "prof-1")
	q.Set("date", "2026-01-05")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp slotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DurationMinutes != 30 {
		t.Fatalf("duration_minutes = %d, want 30", resp.DurationMinutes)
	}
}

func TestSlotsBadDate(t *testing.T) {
	h := testHandler(weekSchedule(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?professional_id=prof-1&date=05-01-2026", nil)
	rec := httptest.NewRecorder()

	h.Slots(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRejectionStatusMapping(t *testing.T) {
	cases := []struct {
		reason engine.Reason
		want   int
	}{
		{engine.ReasonNoScheduleForWeekday, http.StatusUnprocessableEntity},
		{engine.ReasonOutsideWorkHours, http.StatusUnprocessableEntity},
		{engine.ReasonInLunchBreak, http.StatusUnprocessableEntity},
		{engine.ReasonInvalidSlotDuration, http.StatusUnprocessableEntity},
		{engine.ReasonProfessionalConflict, http.StatusConflict},
		{engine.ReasonRoomConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		if got := rejectionStatus(tc.reason); got != tc.want {
			t.Errorf("rejectionStatus(%s) = %d, want %d", tc.reason, got, tc.want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	if _, err := parseWeekday("7"); err == nil {
		t.Error("expected error for weekday 7")
	}
	if _, err := parseWeekday("-1"); err == nil {
		t.Error("expected error for weekday -1")
	}
	wd, err := parseWeekday("1")
	if err != nil {
		t.Fatalf("parseWeekday(1): %v", err)
	}
	if wd != time.Monday {
		t.Fatalf("weekday = %v, want Monday", wd)
	}
}
