package domain

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity provides identity and timestamps for entities.
// An entity built with NewTransientEntity has no identity until the
// store assigns one.
type BaseEntity struct {
	id        uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

// NewBaseEntity creates an entity with a generated ID.
func NewBaseEntity() BaseEntity {
	return NewBaseEntityWithID(uuid.New())
}

// NewTransientEntity creates an entity that has not been persisted yet.
func NewTransientEntity() BaseEntity {
	return NewBaseEntityWithID(uuid.Nil)
}

// NewBaseEntityWithID creates an entity with a specific ID.
func NewBaseEntityWithID(id uuid.UUID) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		id:        id,
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateBaseEntity recreates an entity from persisted state.
func RehydrateBaseEntity(id uuid.UUID, createdAt, updatedAt time.Time) BaseEntity {
	return BaseEntity{
		id:        id,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e BaseEntity) ID() uuid.UUID        { return e.id }
func (e BaseEntity) CreatedAt() time.Time { return e.createdAt }
func (e BaseEntity) UpdatedAt() time.Time { return e.updatedAt }

// IsTransient reports whether the entity still lacks an identity.
func (e BaseEntity) IsTransient() bool {
	return e.id == uuid.Nil
}

// AssignID gives a transient entity its identity. It is a no-op once
// an identity exists.
func (e *BaseEntity) AssignID(id uuid.UUID) {
	if e.id != uuid.Nil {
		return
	}
	e.id = id
}

// Touch updates the updatedAt timestamp.
func (e *BaseEntity) Touch() {
	e.updatedAt = time.Now().UTC()
}
