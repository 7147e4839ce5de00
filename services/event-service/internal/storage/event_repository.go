package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/agreedtime/libs/db"
	"github.com/md-rashed-zaman/agreedtime/libs/grid"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/model"
)

var ErrNotFound = errors.New("not found")

type EventRepository struct {
	pool *db.Pool
}

func NewEventRepository(pool *db.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *EventRepository) InsertEvent(ctx context.Context, tx pgx.Tx, ev *model.Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO events
			(id, public_token, organizer_token, title, description, state, time_zone, slot_duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ev.ID, ev.PublicToken, ev.OrganizerToken, ev.Title, ev.Description,
		ev.State, ev.TimeZone, ev.SlotDuration, ev.CreatedAt, ev.UpdatedAt)
	return err
}

func (r *EventRepository) InsertEventSlots(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, slots []grid.TimeRange) error {
	for _, s := range slots {
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_slots (event_id, start_at, end_at)
			VALUES ($1, $2, $3)
		`, eventID, s.StartAt, s.EndAt); err != nil {
			return err
		}
	}
	return nil
}

// InsertParticipant adds a respondent and returns its internal id and the
// client-facing token.
func (r *EventRepository) InsertParticipant(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string, isOrganizer bool, comment *string) (int64, uuid.UUID, error) {
	var (
		id    int64
		token uuid.UUID
	)
	err := tx.QueryRow(ctx, `
		INSERT INTO participants (event_id, name, is_organizer, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, token
	`, eventID, name, isOrganizer, comment).Scan(&id, &token)
	return id, token, err
}

// ReplaceAvailabilities swaps a participant's stored ranges for the given
// (already merged) set.
func (r *EventRepository) ReplaceAvailabilities(ctx context.Context, tx pgx.Tx, participantID int64, ranges []grid.TimeRange) error {
	if _, err := tx.Exec(ctx, `DELETE FROM availabilities WHERE participant_id = $1`, participantID); err != nil {
		return err
	}
	for _, rng := range ranges {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availabilities (participant_id, start_at, end_at)
			VALUES ($1, $2, $3)
		`, participantID, rng.StartAt, rng.EndAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepository) CountParticipants(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE event_id = $1`, eventID).Scan(&count)
	return count, err
}

func (r *EventRepository) GetEventByPublicToken(ctx context.Context, publicToken string) (model.Event, error) {
	return r.getEvent(ctx, "public_token", publicToken)
}

func (r *EventRepository) GetEventByOrganizerToken(ctx context.Context, organizerToken string) (model.Event, error) {
	return r.getEvent(ctx, "organizer_token", organizerToken)
}

func (r *EventRepository) getEvent(ctx context.Context, column, token string) (model.Event, error) {
	var ev model.Event
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, public_token, organizer_token, title, description, state, time_zone, slot_duration, created_at, updated_at
		FROM events
		WHERE %s = $1
	`, column), token).Scan(&ev.ID, &ev.PublicToken, &ev.OrganizerToken, &ev.Title, &ev.Description,
		&ev.State, &ev.TimeZone, &ev.SlotDuration, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return ev, err
}

func (r *EventRepository) GetOrganizerName(ctx context.Context, eventID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT name FROM participants
		WHERE event_id = $1 AND is_organizer = true
		LIMIT 1
	`, eventID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

func (r *EventRepository) ListEventSlots(ctx context.Context, eventID uuid.UUID) ([]model.EventSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, start_at, end_at
		FROM event_slots
		WHERE event_id = $1
		ORDER BY start_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []model.EventSlot{}
	for rows.Next() {
		var s model.EventSlot
		if err := rows.Scan(&s.ID, &s.EventID, &s.StartAt, &s.EndAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ParticipantSubmission is one respondent with their merged ranges, in
// submission order (organizer first).
type ParticipantSubmission struct {
	Name        string
	IsOrganizer bool
	Comment     *string
	Ranges      []grid.TimeRange
}

// ListSubmissions returns every participant and their availabilities,
// ordered organizer-first then by creation time.
func (r *EventRepository) ListSubmissions(ctx context.Context, eventID uuid.UUID) ([]ParticipantSubmission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.is_organizer, p.comment, a.start_at, a.end_at
		FROM participants p
		LEFT JOIN availabilities a ON p.id = a.participant_id
		WHERE p.event_id = $1
		ORDER BY p.is_organizer DESC, p.created_at ASC, p.id ASC, a.start_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		subs  []ParticipantSubmission
		index = map[int64]int{}
	)
	for rows.Next() {
		var (
			id          int64
			name        string
			isOrganizer bool
			comment     *string
			startAt     *time.Time
			endAt       *time.Time
		)
		if err := rows.Scan(&id, &name, &isOrganizer, &comment, &startAt, &endAt); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			i = len(subs)
			index[id] = i
			subs = append(subs, ParticipantSubmission{Name: name, IsOrganizer: isOrganizer, Comment: comment})
		}
		if startAt != nil && endAt != nil {
			subs[i].Ranges = append(subs[i].Ranges, grid.TimeRange{StartAt: *startAt, EndAt: *endAt})
		}
	}
	return subs, rows.Err()
}

// GetParticipantByToken resolves a participant token within one event.
func (r *EventRepository) GetParticipantByToken(ctx context.Context, eventID uuid.UUID, token uuid.UUID) (model.Participant, []grid.TimeRange, error) {
	var p model.Participant
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, token, name, is_organizer, comment
		FROM participants
		WHERE token = $1 AND event_id = $2
	`, token, eventID).Scan(&p.ID, &p.EventID, &p.Token, &p.Name, &p.IsOrganizer, &p.Comment)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Participant{}, nil, ErrNotFound
	}
	if err != nil {
		return model.Participant{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT start_at, end_at
		FROM availabilities
		WHERE participant_id = $1
		ORDER BY start_at
	`, p.ID)
	if err != nil {
		return model.Participant{}, nil, err
	}
	defer rows.Close()

	ranges := []grid.TimeRange{}
	for rows.Next() {
		var rng grid.TimeRange
		if err := rows.Scan(&rng.StartAt, &rng.EndAt); err != nil {
			return model.Participant{}, nil, err
		}
		ranges = append(ranges, rng)
	}
	return p, ranges, rows.Err()
}

// LookupParticipantID verifies token ownership inside a transaction and
// returns the internal id.
func (r *EventRepository) LookupParticipantID(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, token uuid.UUID) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM participants WHERE token = $1 AND event_id = $2
	`, token, eventID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

func (r *EventRepository) UpdateParticipant(ctx context.Context, tx pgx.Tx, id int64, name string, comment *string) error {
	_, err := tx.Exec(ctx, `
		UPDATE participants SET name = $1, comment = $2, updated_at = now()
		WHERE id = $3
	`, name, comment, id)
	return err
}

// CloseEvent flips an event to closed and returns the updated row. It runs
// inside the caller's transaction so the state change commits together with
// the lifecycle outbox record.
func (r *EventRepository) CloseEvent(ctx context.Context, tx pgx.Tx, organizerToken string) (model.Event, error) {
	var ev model.Event
	err := tx.QueryRow(ctx, `
		UPDATE events
		SET state = $1, updated_at = now()
		WHERE organizer_token = $2
		RETURNING id, public_token, organizer_token, title, description, state, time_zone, slot_duration, created_at, updated_at
	`, model.StateClosed, organizerToken).Scan(&ev.ID, &ev.PublicToken, &ev.OrganizerToken, &ev.Title,
		&ev.Description, &ev.State, &ev.TimeZone, &ev.SlotDuration, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return ev, err
}

// BatchStatus maps each known public token to its event state. Unknown
// tokens are simply absent from the result.
func (r *EventRepository) BatchStatus(ctx context.Context, publicTokens []string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT public_token, state FROM events WHERE public_token = ANY($1)
	`, publicTokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[string]string, len(publicTokens))
	for rows.Next() {
		var token, state string
		if err := rows.Scan(&token, &state); err != nil {
			return nil, err
		}
		statuses[token] = state
	}
	return statuses, rows.Err()
}

// DeleteExpiredEvents removes events created before the retention cutoff;
// participants and availabilities cascade.
func (r *EventRepository) DeleteExpiredEvents(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM events WHERE created_at < $1
	`, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
