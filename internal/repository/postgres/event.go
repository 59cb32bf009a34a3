package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, ev *domain.LifecycleEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events (id, entity_type, entity_id, from_state, to_state, actor_role, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.EntityType, ev.EntityID, ev.FromState, ev.ToState, ev.ActorRole, payload, time.Now())
	return err
}

func (r *eventRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.LifecycleEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_type, entity_id, from_state, to_state, actor_role, payload, created_at
		 FROM lifecycle_events WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.LifecycleEvent
	for rows.Next() {
		var ev domain.LifecycleEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.EntityType, &ev.EntityID, &ev.FromState, &ev.ToState,
			&ev.ActorRole, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
