package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/agreedtime/libs/grid"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/model"
)

func testHandler() *EventHandler {
	return NewEventHandler(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 10)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error, body.Code
}

func TestCreateValidation(t *testing.T) {
	longTitle := strings.Repeat("x", 101)
	longDesc := strings.Repeat("x", 1001)
	longName := strings.Repeat("x", 51)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"malformed json", `{"title":`},
		{"blank title", `{"title":"  ","organizer_name":"Ana","time_slots":[{"start_at":"2025-12-08T00:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"title too long", `{"title":"` + longTitle + `","organizer_name":"Ana","time_slots":[{"start_at":"2025-12-08T00:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"description too long", `{"title":"Standup","description":"` + longDesc + `","organizer_name":"Ana","time_slots":[{"start_at":"2025-12-08T00:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"organizer name too long", `{"title":"Standup","organizer_name":"` + longName + `","time_slots":[{"start_at":"2025-12-08T00:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"no slots", `{"title":"Standup","organizer_name":"Ana","time_slots":[]}`},
		{"inverted range", `{"title":"Standup","organizer_name":"Ana","time_slots":[{"start_at":"2025-12-08T02:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"empty range", `{"title":"Standup","organizer_name":"Ana","time_slots":[{"start_at":"2025-12-08T01:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"zero slot duration", `{"title":"Standup","organizer_name":"Ana","slot_duration":0,"time_slots":[{"start_at":"2025-12-08T00:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
		{"span over ten weeks", `{"title":"Standup","organizer_name":"Ana","time_slots":[{"start_at":"2025-12-08T00:00:00Z","end_at":"2025-12-08T01:00:00Z"},{"start_at":"2026-03-02T00:00:00Z","end_at":"2026-03-02T01:00:00Z"}]}`},
	}
	h := testHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if _, code := decodeError(t, rec); code != "BAD_REQUEST" {
				t.Fatalf("code = %q, want BAD_REQUEST", code)
			}
		})
	}
}

func TestSubmitAvailabilityValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank name", `{"participant_name":"","availabilities":[]}`},
		{"name too long", `{"participant_name":"` + strings.Repeat("x", 51) + `","availabilities":[]}`},
		{"comment too long", `{"participant_name":"Bo","comment":"` + strings.Repeat("x", 501) + `","availabilities":[]}`},
		{"inverted range", `{"participant_name":"Bo","availabilities":[{"start_at":"2025-12-08T02:00:00Z","end_at":"2025-12-08T01:00:00Z"}]}`},
	}
	h := testHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events/tok/availability", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.SubmitAvailability(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestBatchCheckLimits(t *testing.T) {
	h := testHandler()

	tokens := make([]string, 51)
	for i := range tokens {
		tokens[i] = "t"
	}
	body, _ := json.Marshal(map[string]any{"tokens": tokens})
	req := httptest.NewRequest(http.MethodPost, "/events/batch-check", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	h.BatchCheck(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("51 tokens: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/events/batch-check", strings.NewReader(`{"tokens":[]}`))
	rec = httptest.NewRecorder()
	h.BatchCheck(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty tokens: status = %d, want 200", rec.Code)
	}
	var resp batchCheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Statuses) != 0 {
		t.Fatalf("statuses = %v, want empty", resp.Statuses)
	}
}

func TestBuildHeatmap(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 12, 8, h, 0, 0, 0, time.UTC) }
	agg := grid.AggregateResult{
		TopPicks: []grid.SlotTally{
			{StartAt: at(9), Count: 2, Attendees: []string{"Ana", "Bo"}},
		},
		OtherOptions: []grid.SlotTally{
			{StartAt: at(10), Count: 1, Attendees: []string{"Ana"}},
		},
		MaxCount:          2,
		TotalParticipants: 2,
	}
	hm := buildHeatmap(agg)
	if len(hm.TopPicks) != 1 || len(hm.OtherOptions) != 1 {
		t.Fatalf("unexpected slot counts: %+v", hm)
	}
	if hm.TopPicks[0].Opacity != 1.0 {
		t.Fatalf("top pick opacity = %v, want 1.0", hm.TopPicks[0].Opacity)
	}
	if got, want := hm.OtherOptions[0].Opacity, grid.Opacity(1, 2); got != want {
		t.Fatalf("other option opacity = %v, want %v", got, want)
	}
	if hm.MaxCount != 2 || hm.TotalParticipants != 2 {
		t.Fatalf("counts not carried over: %+v", hm)
	}
}

func TestEventLocation(t *testing.T) {
	if loc := eventLocation(model.Event{}); loc != time.UTC {
		t.Fatalf("nil zone: got %v, want UTC", loc)
	}
	bad := "Not/AZone"
	if loc := eventLocation(model.Event{TimeZone: &bad}); loc != time.UTC {
		t.Fatalf("bad zone: got %v, want UTC", loc)
	}
	seoul := "Asia/Seoul"
	loc := eventLocation(model.Event{TimeZone: &seoul})
	if loc.String() != "Asia/Seoul" {
		t.Fatalf("got %v, want Asia/Seoul", loc)
	}
}
