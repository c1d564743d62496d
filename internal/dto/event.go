package dto

import (
	"regexp"
	"time"

	"github.com/mrcrandell/event-calendar-api/internal/domain"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// CreateEventRequest represents request to create a new event
type CreateEventRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Slug        string  `json:"slug" binding:"required,min=2,max=100"`
	StartsAt    string  `json:"starts_at" binding:"required"`
	EndsAt      string  `json:"ends_at" binding:"required"`
	Description *string `json:"description" binding:"omitempty"`
	HauntedBy   *string `json:"haunted_by" binding:"omitempty,max=255"`
	IsFeatured  bool    `json:"is_featured"`
	IsHasEndsAt bool    `json:"is_has_ends_at"`
	IsAllDay    bool    `json:"is_all_day"`
	IsActive    bool    `json:"is_active"`
}

// ValidateSlug validates slug format (lowercase alphanumeric and hyphens only)
func (r *CreateEventRequest) ValidateSlug() (bool, string) {
	if !slugRegex.MatchString(r.Slug) {
		return false, "Slug must contain only lowercase letters, numbers, and hyphens"
	}
	return true, ""
}

// ParseTimes parses the RFC3339 timestamps in the request
func (r *CreateEventRequest) ParseTimes() (startsAt, endsAt time.Time, ok bool, field string) {
	var err error
	startsAt, err = time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return time.Time{}, time.Time{}, false, "starts_at"
	}
	endsAt, err = time.Parse(time.RFC3339, r.EndsAt)
	if err != nil {
		return time.Time{}, time.Time{}, false, "ends_at"
	}
	return startsAt, endsAt, true, ""
}

// UpdateEventRequest represents request to update event information
type UpdateEventRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	StartsAt    *string `json:"starts_at" binding:"omitempty"`
	EndsAt      *string `json:"ends_at" binding:"omitempty"`
	Description *string `json:"description" binding:"omitempty"`
	HauntedBy   *string `json:"haunted_by" binding:"omitempty,max=255"`
	IsFeatured  *bool   `json:"is_featured" binding:"omitempty"`
	IsHasEndsAt *bool   `json:"is_has_ends_at" binding:"omitempty"`
	IsAllDay    *bool   `json:"is_all_day" binding:"omitempty"`
	IsActive    *bool   `json:"is_active" binding:"omitempty"`
}

// Validate validates that at least one field is provided for update
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Name == nil && r.StartsAt == nil && r.EndsAt == nil && r.Description == nil &&
		r.HauntedBy == nil && r.IsFeatured == nil && r.IsHasEndsAt == nil &&
		r.IsAllDay == nil && r.IsActive == nil {
		return false, "At least one field must be provided for update"
	}
	return true, ""
}

// EventResponse represents event data in response
type EventResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	StartsAt    string  `json:"starts_at"`
	EndsAt      string  `json:"ends_at"`
	Description *string `json:"description,omitempty"`
	HauntedBy   *string `json:"haunted_by,omitempty"`
	IsFeatured  bool    `json:"is_featured"`
	IsHasEndsAt bool    `json:"is_has_ends_at"`
	IsAllDay    bool    `json:"is_all_day"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewEventResponse converts domain.Event to EventResponse
func NewEventResponse(event *domain.Event) *EventResponse {
	return &EventResponse{
		ID:          event.ID,
		Name:        event.Name,
		Slug:        event.Slug,
		StartsAt:    event.StartsAt.Format(time.RFC3339),
		EndsAt:      event.EndsAt.Format(time.RFC3339),
		Description: event.Description,
		HauntedBy:   event.HauntedBy,
		IsFeatured:  event.IsFeatured,
		IsHasEndsAt: event.IsHasEndsAt,
		IsAllDay:    event.IsAllDay,
		IsActive:    event.IsActive,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   event.UpdatedAt.Format(time.RFC3339),
	}
}

// ListEventsQuery represents query parameters for listing events
type ListEventsQuery struct {
	Page     int   `form:"page" binding:"omitempty,min=1"`
	Limit    int   `form:"limit" binding:"omitempty,min=1,max=100"`
	IsActive *bool `form:"is_active" binding:"omitempty"`
	Featured *bool `form:"featured" binding:"omitempty"`
}

// SetDefaults sets default values for query parameters
func (q *ListEventsQuery) SetDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
}

// ListEventsResponse represents paginated list of events
type ListEventsResponse struct {
	Events     []EventResponse `json:"events"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
