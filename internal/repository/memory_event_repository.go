package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mrcrandell/event-calendar-api/internal/domain"
)

// MemoryEventRepository is an in-memory EventRepository for tests
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event

	// FailNext makes the next write fail with the given error, once.
	// Used to exercise retry and row-isolation behavior.
	failNext error
	failMu   sync.Mutex
}

// NewMemoryEventRepository creates a new in-memory repository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: make(map[string]*domain.Event),
	}
}

// FailNextWrite arranges for the next Create or Update call to fail once
func (r *MemoryEventRepository) FailNextWrite(err error) {
	r.failMu.Lock()
	r.failNext = err
	r.failMu.Unlock()
}

func (r *MemoryEventRepository) takeFailure() error {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	err := r.failNext
	r.failNext = nil
	return err
}

// Seed inserts an event directly, bypassing write-failure injection
func (r *MemoryEventRepository) Seed(event *domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[event.ID] = &copied
}

// Len returns the number of stored events
func (r *MemoryEventRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Create creates a new event. Inserting a second event with the same
// (slug, starts_at) fails the way the unique index does in Postgres.
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if err := r.takeFailure(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events {
		if existing.NaturalKeyEquals(event.Slug, event.StartsAt) {
			return ErrDuplicateKey
		}
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// GetByID retrieves an event by ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

// GetBySlug retrieves all event instances sharing a slug, ordered by start
func (r *MemoryEventRepository) GetBySlug(ctx context.Context, slug string) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*domain.Event
	for _, event := range r.events {
		if event.Slug == slug {
			copied := *event
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartsAt.Before(matches[j].StartsAt)
	})
	return matches, nil
}

// FindBySlugAndStart retrieves every event matching the natural key
func (r *MemoryEventRepository) FindBySlugAndStart(ctx context.Context, slug string, startsAt time.Time) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*domain.Event
	for _, event := range r.events {
		if event.NaturalKeyEquals(slug, startsAt) {
			copied := *event
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

// List retrieves events with pagination and filters
func (r *MemoryEventRepository) List(ctx context.Context, page, limit int, isActive, isFeatured *bool) ([]*domain.Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []*domain.Event
	for _, event := range r.events {
		if isActive != nil && event.IsActive != *isActive {
			continue
		}
		if isFeatured != nil && event.IsFeatured != *isFeatured {
			continue
		}
		copied := *event
		filtered = append(filtered, &copied)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].StartsAt.Before(filtered[j].StartsAt)
	})

	total := len(filtered)
	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

// Update updates an event
func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if err := r.takeFailure(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return ErrEventNotFound
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// InTx runs fn against the repository itself. The map is guarded per
// call, which is enough isolation for tests.
func (r *MemoryEventRepository) InTx(ctx context.Context, fn func(EventRepository) error) error {
	return fn(r)
}

// Delete removes an event by ID
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}
