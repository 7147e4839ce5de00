package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/agreedtime/libs/grid"
	"github.com/md-rashed-zaman/agreedtime/libs/httpx"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/model"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/outbox"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/storage"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000
	maxNameLen        = 50
	maxCommentLen     = 500
	maxBatchTokens    = 50
	defaultSlotMin    = 60
)

type EventHandler struct {
	repo            *storage.EventRepository
	outboxRepo      *outbox.Repository
	logger          *slog.Logger
	maxParticipants int
}

func NewEventHandler(repo *storage.EventRepository, outboxRepo *outbox.Repository, logger *slog.Logger, maxParticipants int) *EventHandler {
	if maxParticipants <= 0 {
		maxParticipants = 10
	}
	return &EventHandler{
		repo:            repo,
		outboxRepo:      outboxRepo,
		logger:          logger,
		maxParticipants: maxParticipants,
	}
}

type createEventRequest struct {
	Title         string           `json:"title"`
	Description   *string          `json:"description"`
	OrganizerName string           `json:"organizer_name"`
	TimeZone      *string          `json:"time_zone"`
	SlotDuration  *int             `json:"slot_duration"`
	TimeSlots     []grid.TimeRange `json:"time_slots"`
}

type createEventResponse struct {
	ID             uuid.UUID `json:"id"`
	PublicToken    string    `json:"public_token"`
	OrganizerToken string    `json:"organizer_token"`
}

type eventResponse struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	Description   *string           `json:"description"`
	TimeZone      *string           `json:"time_zone"`
	SlotDuration  int               `json:"slot_duration"`
	State         string            `json:"state"`
	EventSlots    []model.EventSlot `json:"event_slots"`
	OrganizerName string            `json:"organizer_name"`
}

type submitAvailabilityRequest struct {
	ParticipantName string           `json:"participant_name"`
	Availabilities  []grid.TimeRange `json:"availabilities"`
	Comment         *string          `json:"comment"`
}

type submitAvailabilityResponse struct {
	ParticipantToken uuid.UUID `json:"participant_token"`
}

type participantResponse struct {
	Name           string           `json:"name"`
	IsOrganizer    bool             `json:"is_organizer"`
	Comment        *string          `json:"comment"`
	Availabilities []grid.TimeRange `json:"availabilities"`
}

type heatmapSlot struct {
	StartAt   time.Time `json:"start_at"`
	Count     int       `json:"count"`
	Attendees []string  `json:"attendees"`
	Opacity   float64   `json:"opacity"`
}

type heatmapResponse struct {
	TopPicks          []heatmapSlot `json:"top_picks"`
	OtherOptions      []heatmapSlot `json:"other_options"`
	MaxCount          int           `json:"max_count"`
	TotalParticipants int           `json:"total_participants"`
	IsOrganizerOnly   bool          `json:"is_organizer_only"`
}

type eventResultsResponse struct {
	ID                uuid.UUID             `json:"id"`
	Title             string                `json:"title"`
	Description       *string               `json:"description"`
	TimeZone          *string               `json:"time_zone"`
	SlotDuration      int                   `json:"slot_duration"`
	State             string                `json:"state"`
	EventSlots        []model.EventSlot     `json:"event_slots"`
	Participants      []participantResponse `json:"participants"`
	TotalParticipants int                   `json:"total_participants"`
	Heatmap           heatmapResponse       `json:"heatmap"`
}

type organizerEventResponse struct {
	eventResultsResponse
	PublicToken    string    `json:"public_token"`
	OrganizerToken string    `json:"organizer_token"`
	CreatedAt      time.Time `json:"created_at"`
}

// Create opens a new event. The organizer becomes the first participant and
// the proposed slots double as the organizer's initial availability.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid json body")
		return
	}

	if strings.TrimSpace(req.Title) == "" || len(req.Title) > maxTitleLen {
		httpx.BadRequest(w, "Title is required and must be less than 100 characters")
		return
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		httpx.BadRequest(w, "Description must be less than 1000 characters")
		return
	}
	if strings.TrimSpace(req.OrganizerName) == "" || len(req.OrganizerName) > maxNameLen {
		httpx.BadRequest(w, "Organizer name is required and must be less than 50 characters")
		return
	}
	if len(req.TimeSlots) == 0 {
		httpx.BadRequest(w, "At least one time slot is required")
		return
	}
	if err := validateRanges(req.TimeSlots); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	slotDuration := defaultSlotMin
	if req.SlotDuration != nil {
		slotDuration = *req.SlotDuration
	}
	if slotDuration <= 0 {
		httpx.BadRequest(w, "Slot duration must be positive")
		return
	}
	if err := validateSlotSpan(req.TimeSlots, req.TimeZone); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	ev := &model.Event{
		ID:             uuid.New(),
		PublicToken:    uuid.NewString(),
		OrganizerToken: uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		State:          model.StateOpen,
		TimeZone:       req.TimeZone,
		SlotDuration:   slotDuration,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.repo.InsertEvent(ctx, tx, ev); err != nil {
		h.fail(w, err)
		return
	}

	merged := grid.MergeRanges(req.TimeSlots)
	if err := h.repo.InsertEventSlots(ctx, tx, ev.ID, merged); err != nil {
		h.fail(w, err)
		return
	}

	organizerID, _, err := h.repo.InsertParticipant(ctx, tx, ev.ID, req.OrganizerName, true, nil)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.repo.ReplaceAvailabilities(ctx, tx, organizerID, merged); err != nil {
		h.fail(w, err)
		return
	}

	if err := h.emit(ctx, tx, ev.ID, outbox.TypeEventCreated, map[string]any{
		"event_id":      ev.ID,
		"public_token":  ev.PublicToken,
		"title":         ev.Title,
		"slot_duration": ev.SlotDuration,
	}); err != nil {
		h.fail(w, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.fail(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, createEventResponse{
		ID:             ev.ID,
		PublicToken:    ev.PublicToken,
		OrganizerToken: ev.OrganizerToken,
	})
}

// Get returns the public view of an event.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ev, err := h.repo.GetEventByPublicToken(ctx, r.PathValue("public_token"))
	if err != nil {
		h.fail(w, err)
		return
	}
	organizerName, err := h.repo.GetOrganizerName(ctx, ev.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	slots, err := h.repo.ListEventSlots(ctx, ev.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, eventResponse{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		TimeZone:      ev.TimeZone,
		SlotDuration:  ev.SlotDuration,
		State:         ev.State,
		EventSlots:    slots,
		OrganizerName: organizerName,
	})
}

// SubmitAvailability records a new participant's ranges. Duplicate names are
// allowed; each submission returns its own participant token.
func (h *EventHandler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	var req submitAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid json body")
		return
	}
	if strings.TrimSpace(req.ParticipantName) == "" || len(req.ParticipantName) > maxNameLen {
		httpx.BadRequest(w, "Participant name is required and must be less than 50 characters")
		return
	}
	if req.Comment != nil && len(*req.Comment) > maxCommentLen {
		httpx.BadRequest(w, "Comment must be less than 500 characters")
		return
	}
	if err := validateRanges(req.Availabilities); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	ev, err := h.repo.GetEventByPublicToken(ctx, r.PathValue("public_token"))
	if err != nil {
		h.fail(w, err)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	count, err := h.repo.CountParticipants(ctx, tx, ev.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if count >= h.maxParticipants {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeParticipantLimitReached,
			"Event has reached maximum limit of participants")
		return
	}

	participantID, token, err := h.repo.InsertParticipant(ctx, tx, ev.ID, req.ParticipantName, false, req.Comment)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.repo.ReplaceAvailabilities(ctx, tx, participantID, grid.MergeRanges(req.Availabilities)); err != nil {
		h.fail(w, err)
		return
	}

	if err := h.emit(ctx, tx, ev.ID, outbox.TypeAvailabilitySubmitted, map[string]any{
		"event_id":          ev.ID,
		"participant_token": token,
	}); err != nil {
		h.fail(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.fail(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, submitAvailabilityResponse{ParticipantToken: token})
}

// Results returns every submission plus the aggregated heatmap, computed in
// the event's time zone.
func (h *EventHandler) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ev, err := h.repo.GetEventByPublicToken(ctx, r.PathValue("public_token"))
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.buildResults(ctx, ev)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// OrganizerView is Results plus the tokens and creation time, addressed by
// the organizer capability token.
func (h *EventHandler) OrganizerView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ev, err := h.repo.GetEventByOrganizerToken(ctx, r.PathValue("organizer_token"))
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.buildResults(ctx, ev)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, organizerEventResponse{
		eventResultsResponse: res,
		PublicToken:          ev.PublicToken,
		OrganizerToken:       ev.OrganizerToken,
		CreatedAt:            ev.CreatedAt,
	})
}

// Close flips the event to closed; further participant updates are rejected.
// The state change and the lifecycle event commit atomically.
func (h *EventHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ev, err := h.repo.CloseEvent(ctx, tx, r.PathValue("organizer_token"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.emit(ctx, tx, ev.ID, outbox.TypeEventClosed, map[string]any{
		"event_id":     ev.ID,
		"public_token": ev.PublicToken,
	}); err != nil {
		h.fail(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.fail(w, err)
		return
	}

	organizerName, err := h.repo.GetOrganizerName(ctx, ev.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	slots, err := h.repo.ListEventSlots(ctx, ev.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, eventResponse{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		TimeZone:      ev.TimeZone,
		SlotDuration:  ev.SlotDuration,
		State:         ev.State,
		EventSlots:    slots,
		OrganizerName: organizerName,
	})
}

type participantDetailResponse struct {
	ParticipantToken uuid.UUID        `json:"participant_token"`
	Name             string           `json:"name"`
	Comment          *string          `json:"comment"`
	Availabilities   []grid.TimeRange `json:"availabilities"`
}

// GetParticipant returns one submission, addressed by participant token.
func (h *EventHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ev, err := h.repo.GetEventByPublicToken(ctx, r.PathValue("public_token"))
	if err != nil {
		h.fail(w, err)
		return
	}
	token, err := uuid.Parse(r.PathValue("participant_token"))
	if err != nil {
		httpx.NotFound(w)
		return
	}
	p, ranges, err := h.repo.GetParticipantByToken(ctx, ev.ID, token)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, participantDetailResponse{
		ParticipantToken: p.Token,
		Name:             p.Name,
		Comment:          p.Comment,
		Availabilities:   ranges,
	})
}

type updateParticipantRequest struct {
	ParticipantName string           `json:"participant_name"`
	Availabilities  []grid.TimeRange `json:"availabilities"`
	Comment         *string          `json:"comment"`
}

// UpdateParticipant rewrites one submission in place.
func (h *EventHandler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	var req updateParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid json body")
		return
	}
	if strings.TrimSpace(req.ParticipantName) == "" || len(req.ParticipantName) > maxNameLen {
		httpx.BadRequest(w, "Participant name is required and must be less than 50 characters")
		return
	}
	if req.Comment != nil && len(*req.Comment) > maxCommentLen {
		httpx.BadRequest(w, "Comment must be less than 500 characters")
		return
	}
	if err := validateRanges(req.Availabilities); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	ev, err := h.repo.GetEventByPublicToken(ctx, r.PathValue("public_token"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if ev.State == model.StateClosed {
		httpx.BadRequest(w, "Cannot update participation for a closed event")
		return
	}
	token, err := uuid.Parse(r.PathValue("participant_token"))
	if err != nil {
		httpx.NotFound(w)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	participantID, err := h.repo.LookupParticipantID(ctx, tx, ev.ID, token)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.repo.UpdateParticipant(ctx, tx, participantID, req.ParticipantName, req.Comment); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.repo.ReplaceAvailabilities(ctx, tx, participantID, grid.MergeRanges(req.Availabilities)); err != nil {
		h.fail(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type batchCheckRequest struct {
	Tokens []string `json:"tokens"`
}

type batchCheckResponse struct {
	Statuses map[string]string `json:"statuses"`
}

// BatchCheck maps up to 50 public tokens to their event state, letting
// clients prune stale saved links in one call.
func (h *EventHandler) BatchCheck(w http.ResponseWriter, r *http.Request) {
	var req batchCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid json body")
		return
	}
	if len(req.Tokens) > maxBatchTokens {
		httpx.BadRequest(w, "Too many tokens to check (max 50)")
		return
	}
	if len(req.Tokens) == 0 {
		httpx.JSON(w, http.StatusOK, batchCheckResponse{Statuses: map[string]string{}})
		return
	}
	statuses, err := h.repo.BatchStatus(r.Context(), req.Tokens)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batchCheckResponse{Statuses: statuses})
}

func (h *EventHandler) buildResults(ctx context.Context, ev model.Event) (eventResultsResponse, error) {
	slots, err := h.repo.ListEventSlots(ctx, ev.ID)
	if err != nil {
		return eventResultsResponse{}, err
	}
	subs, err := h.repo.ListSubmissions(ctx, ev.ID)
	if err != nil {
		return eventResultsResponse{}, err
	}

	participants := make([]participantResponse, 0, len(subs))
	availabilities := make([]grid.ParticipantAvailability, 0, len(subs))
	for _, s := range subs {
		participants = append(participants, participantResponse{
			Name:           s.Name,
			IsOrganizer:    s.IsOrganizer,
			Comment:        s.Comment,
			Availabilities: s.Ranges,
		})
		availabilities = append(availabilities, grid.ParticipantAvailability{
			Name:        s.Name,
			IsOrganizer: s.IsOrganizer,
			Ranges:      s.Ranges,
		})
	}

	agg := grid.Aggregate(availabilities, ev.SlotDuration, eventLocation(ev))
	return eventResultsResponse{
		ID:                ev.ID,
		Title:             ev.Title,
		Description:       ev.Description,
		TimeZone:          ev.TimeZone,
		SlotDuration:      ev.SlotDuration,
		State:             ev.State,
		EventSlots:        slots,
		Participants:      participants,
		TotalParticipants: len(subs),
		Heatmap:           buildHeatmap(agg),
	}, nil
}

func buildHeatmap(agg grid.AggregateResult) heatmapResponse {
	convert := func(slots []grid.SlotTally) []heatmapSlot {
		out := make([]heatmapSlot, 0, len(slots))
		for _, s := range slots {
			out = append(out, heatmapSlot{
				StartAt:   s.StartAt,
				Count:     s.Count,
				Attendees: s.Attendees,
				Opacity:   grid.Opacity(s.Count, agg.TotalParticipants),
			})
		}
		return out
	}
	return heatmapResponse{
		TopPicks:          convert(agg.TopPicks),
		OtherOptions:      convert(agg.OtherOptions),
		MaxCount:          agg.MaxCount,
		TotalParticipants: agg.TotalParticipants,
		IsOrganizerOnly:   agg.IsOrganizerOnly,
	}
}

func eventLocation(ev model.Event) *time.Location {
	if ev.TimeZone == nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(*ev.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateRanges(ranges []grid.TimeRange) error {
	for _, rng := range ranges {
		if !rng.EndAt.After(rng.StartAt) {
			return errors.New("Invalid time range: start must be before end")
		}
	}
	return nil
}

// validateSlotSpan bounds the calendar span of the proposed slots, in the
// event's zone, to what a grid can render.
func validateSlotSpan(slots []grid.TimeRange, timeZone *string) error {
	loc := time.UTC
	if timeZone != nil {
		if l, err := time.LoadLocation(*timeZone); err == nil {
			loc = l
		}
	}
	first, last := slots[0], slots[0]
	for _, s := range slots[1:] {
		if s.StartAt.Before(first.StartAt) {
			first = s
		}
		if s.EndAt.After(last.EndAt) {
			last = s
		}
	}
	startDate := grid.FormatLocalDate(first.StartAt.In(loc))
	endDate := grid.FormatLocalDate(last.EndAt.Add(-time.Nanosecond).In(loc))
	return grid.ValidateDateRange(startDate, endDate)
}

func (h *EventHandler) emit(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, eventType string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "event",
		AggregateID:   eventID.String(),
		EventType:     eventType,
		Payload:       body,
	})
}

func (h *EventHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpx.NotFound(w)
	default:
		h.logger.Error("database error", "err", err)
		httpx.Internal(w)
	}
}
