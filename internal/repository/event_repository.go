package repository

import (
	"context"
	"time"

	"github.com/mrcrandell/event-calendar-api/internal/domain"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetBySlug retrieves all event instances sharing a slug, ordered by start
	GetBySlug(ctx context.Context, slug string) ([]*domain.Event, error)
	// FindBySlugAndStart retrieves every event matching the natural key.
	// More than one result signals a store integrity violation; callers
	// decide how to handle it.
	FindBySlugAndStart(ctx context.Context, slug string, startsAt time.Time) ([]*domain.Event, error)
	// List retrieves events with pagination and filters
	List(ctx context.Context, page, limit int, isActive, isFeatured *bool) ([]*domain.Event, int, error)
	// Update updates an event
	Update(ctx context.Context, event *domain.Event) error
	// Delete removes an event by ID
	Delete(ctx context.Context, id string) error
	// InTx runs fn against a repository scoped to one transaction.
	// fn returning nil commits; any error rolls back.
	InTx(ctx context.Context, fn func(EventRepository) error) error
}
