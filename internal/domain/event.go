package domain

import "time"

type EntityType string

const (
	EntityTypeMasterOrder EntityType = "MASTER_ORDER"
	EntityTypeSubOrder    EntityType = "SUB_ORDER"
	EntityTypeContract    EntityType = "CONTRACT"
	EntityTypeExtension   EntityType = "EXTENSION_REQUEST"
	EntityTypeDispute     EntityType = "DISPUTE"
)

// LifecycleEvent is emitted for every committed state transition and
// persisted for audit before fan-out.
type LifecycleEvent struct {
	ID         string            `json:"id"`
	EntityType EntityType        `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	FromState  string            `json:"from_state"`
	ToState    string            `json:"to_state"`
	ActorRole  Role              `json:"actor_role"`
	Payload    map[string]string `json:"payload,omitempty"`
	CreatedAt  time.Time         `json:"timestamp"`
}
