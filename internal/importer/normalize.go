package importer

import (
	"fmt"
	"time"

	"github.com/mrcrandell/event-calendar-api/internal/domain"
)

// legacyTimeLayout is the fixed timestamp format of the legacy export.
// The source text carries no timezone; values are interpreted in the
// configured reference zone.
const legacyTimeLayout = "2006-01-02 15:04:05"

// NormalizationError reports a single field that failed type or shape
// conversion. It fails only the row it belongs to.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Normalizer converts raw CSV rows into event candidates
type Normalizer struct {
	location *time.Location
}

// NewNormalizer creates a Normalizer that interprets legacy timestamps
// in the given zone.
func NewNormalizer(location *time.Location) *Normalizer {
	if location == nil {
		location = time.UTC
	}
	return &Normalizer{location: location}
}

// Normalize converts one raw row into an event candidate. The returned
// event has no ID and zero CreatedAt/UpdatedAt; reconciliation assigns
// those. Field rules:
//
//   - name, slug, starts_at are required; empty or missing fails the row
//   - starts_at, ends_at use the fixed legacy layout in the reference zone
//   - flag columns map "1" to true and anything else to false
//   - optional strings map empty to nil
func (n *Normalizer) Normalize(row RawRow) (*domain.Event, error) {
	if row.Err != nil {
		return nil, fmt.Errorf("unparseable line: %w", row.Err)
	}

	name := row.Get("name")
	if name == "" {
		return nil, &NormalizationError{Field: "name", Reason: "required"}
	}

	slug := row.Get("slug")
	if slug == "" {
		return nil, &NormalizationError{Field: "slug", Reason: "required"}
	}

	startsAtRaw := row.Get("starts_at")
	if startsAtRaw == "" {
		return nil, &NormalizationError{Field: "starts_at", Reason: "required"}
	}
	startsAt, err := time.ParseInLocation(legacyTimeLayout, startsAtRaw, n.location)
	if err != nil {
		return nil, &NormalizationError{Field: "starts_at", Reason: "bad timestamp"}
	}

	// The store keeps ends_at non-null even when is_has_ends_at is false,
	// so an absent value fails the row rather than guessing a default.
	endsAtRaw := row.Get("ends_at")
	if endsAtRaw == "" {
		return nil, &NormalizationError{Field: "ends_at", Reason: "required"}
	}
	endsAt, err := time.ParseInLocation(legacyTimeLayout, endsAtRaw, n.location)
	if err != nil {
		return nil, &NormalizationError{Field: "ends_at", Reason: "bad timestamp"}
	}

	return &domain.Event{
		Name:        name,
		Slug:        slug,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Description: optionalString(row.Get("description")),
		HauntedBy:   optionalString(row.Get("haunted_by")),
		IsFeatured:  flagValue(row.Get("is_featured")),
		IsHasEndsAt: flagValue(row.Get("is_has_ends_at")),
		IsAllDay:    flagValue(row.Get("is_all_day")),
		IsActive:    flagValue(row.Get("is_active")),
	}, nil
}

// flagValue coerces a legacy string flag: "1" is true, everything else
// (including empty and absent) is false. No tri-state.
func flagValue(s string) bool {
	return s == "1"
}

// optionalString maps empty to nil
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
