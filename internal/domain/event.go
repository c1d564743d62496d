package domain

import "time"

// Event represents a calendar event. Recurring events share a slug across
// instances, so the pair (Slug, StartsAt) identifies one logical event.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Description *string   `json:"description,omitempty"`
	HauntedBy   *string   `json:"haunted_by,omitempty"`
	IsFeatured  bool      `json:"is_featured"`
	IsHasEndsAt bool      `json:"is_has_ends_at"`
	IsAllDay    bool      `json:"is_all_day"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NaturalKeyEquals reports whether the other event identifies the same
// logical event: equal slug and the exact same start instant.
func (e *Event) NaturalKeyEquals(slug string, startsAt time.Time) bool {
	return e.Slug == slug && e.StartsAt.Equal(startsAt)
}

// ApplyImport overwrites every import-managed field with the candidate's
// values. The merge is total: nil optional fields clear the stored value.
// ID, CreatedAt and UpdatedAt are system-managed and left untouched.
func (e *Event) ApplyImport(candidate *Event) {
	e.Name = candidate.Name
	e.Slug = candidate.Slug
	e.StartsAt = candidate.StartsAt
	e.EndsAt = candidate.EndsAt
	e.Description = candidate.Description
	e.HauntedBy = candidate.HauntedBy
	e.IsFeatured = candidate.IsFeatured
	e.IsHasEndsAt = candidate.IsHasEndsAt
	e.IsAllDay = candidate.IsAllDay
	e.IsActive = candidate.IsActive
}
