package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrcrandell/event-calendar-api/internal/domain"
	"github.com/mrcrandell/event-calendar-api/internal/dto"
	"github.com/mrcrandell/event-calendar-api/internal/importer"
	"github.com/mrcrandell/event-calendar-api/internal/repository"
	"github.com/mrcrandell/event-calendar-api/pkg/logger"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAlreadyExists = errors.New("event already exists")
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
)

// EventService handles event business logic
type EventService interface {
	Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	GetByID(ctx context.Context, id string) (*dto.EventResponse, error)
	GetBySlug(ctx context.Context, slug string, startsAt *time.Time) ([]*dto.EventResponse, error)
	List(ctx context.Context, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, input io.Reader) (*dto.ImportReport, error)
}

type eventService struct {
	eventRepo repository.EventRepository
	importer  *importer.Importer
}

// NewEventService creates a new event service. Legacy import timestamps
// are interpreted in the given zone.
func NewEventService(eventRepo repository.EventRepository, importZone *time.Location) EventService {
	return &eventService{
		eventRepo: eventRepo,
		importer:  importer.NewImporter(eventRepo, importZone),
	}
}

func (s *eventService) Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	startsAt, endsAt, ok, field := req.ParseTimes()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimestamp, field)
	}

	// The natural key (slug, starts_at) must stay unique
	existing, err := s.eventRepo.FindBySlugAndStart(ctx, req.Slug, startsAt)
	if err != nil {
		return nil, fmt.Errorf("failed to check event existence: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrEventAlreadyExists
	}

	now := time.Now()
	event := &domain.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Slug:        req.Slug,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Description: req.Description,
		HauntedBy:   req.HauntedBy,
		IsFeatured:  req.IsFeatured,
		IsHasEndsAt: req.IsHasEndsAt,
		IsAllDay:    req.IsAllDay,
		IsActive:    req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEventAlreadyExists
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logger.WithContext(ctx).Info("event created",
		zap.String("event_id", event.ID),
		zap.String("slug", event.Slug),
	)

	return dto.NewEventResponse(event), nil
}

func (s *eventService) GetByID(ctx context.Context, id string) (*dto.EventResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return dto.NewEventResponse(event), nil
}

func (s *eventService) GetBySlug(ctx context.Context, slug string, startsAt *time.Time) ([]*dto.EventResponse, error) {
	var events []*domain.Event
	var err error
	if startsAt != nil {
		events, err = s.eventRepo.FindBySlugAndStart(ctx, slug, *startsAt)
	} else {
		events, err = s.eventRepo.GetBySlug(ctx, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get events by slug: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}

	responses := make([]*dto.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, dto.NewEventResponse(event))
	}
	return responses, nil
}

func (s *eventService) List(ctx context.Context, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error) {
	query.SetDefaults()

	events, total, err := s.eventRepo.List(ctx, query.Page, query.Limit, query.IsActive, query.Featured)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, *dto.NewEventResponse(event))
	}

	totalPages := (total + query.Limit - 1) / query.Limit

	return &dto.ListEventsResponse{
		Events:     responses,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *eventService) Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.StartsAt != nil {
		startsAt, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("%w: starts_at", ErrInvalidTimestamp)
		}
		if !startsAt.Equal(event.StartsAt) {
			// Moving the start changes the natural key
			siblings, err := s.eventRepo.FindBySlugAndStart(ctx, event.Slug, startsAt)
			if err != nil {
				return nil, fmt.Errorf("failed to check event existence: %w", err)
			}
			if len(siblings) > 0 {
				return nil, ErrEventAlreadyExists
			}
		}
		event.StartsAt = startsAt
	}
	if req.EndsAt != nil {
		endsAt, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return nil, fmt.Errorf("%w: ends_at", ErrInvalidTimestamp)
		}
		event.EndsAt = endsAt
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.HauntedBy != nil {
		event.HauntedBy = req.HauntedBy
	}
	if req.IsFeatured != nil {
		event.IsFeatured = *req.IsFeatured
	}
	if req.IsHasEndsAt != nil {
		event.IsHasEndsAt = *req.IsHasEndsAt
	}
	if req.IsAllDay != nil {
		event.IsAllDay = *req.IsAllDay
	}
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}
	event.UpdatedAt = time.Now()

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return dto.NewEventResponse(event), nil
}

func (s *eventService) Delete(ctx context.Context, id string) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}

	logger.WithContext(ctx).Info("event deleted", zap.String("event_id", id))
	return nil
}

func (s *eventService) Import(ctx context.Context, input io.Reader) (*dto.ImportReport, error) {
	return s.importer.Run(ctx, input)
}
