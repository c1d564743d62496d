package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrcrandell/event-calendar-api/internal/dto"
	"github.com/mrcrandell/event-calendar-api/internal/repository"
)

func newTestService() (EventService, *repository.MemoryEventRepository) {
	repo := repository.NewMemoryEventRepository()
	return NewEventService(repo, time.UTC), repo
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func validCreateRequest() *dto.CreateEventRequest {
	return &dto.CreateEventRequest{
		Name:        "Pumpkin Festival",
		Slug:        "pumpkin-festival",
		StartsAt:    "2009-10-09T20:00:00Z",
		EndsAt:      "2009-10-09T23:00:00Z",
		Description: strPtr("Annual fall celebration"),
		IsFeatured:  true,
		IsHasEndsAt: true,
		IsActive:    true,
	}
}

func TestEventService_Create(t *testing.T) {
	svc, repo := newTestService()

	resp, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if resp.ID == "" {
		t.Error("expected generated ID")
	}
	if resp.Slug != "pumpkin-festival" {
		t.Errorf("expected slug 'pumpkin-festival', got %q", resp.Slug)
	}
	if resp.StartsAt != "2009-10-09T20:00:00Z" {
		t.Errorf("expected RFC3339 starts_at, got %q", resp.StartsAt)
	}
	if repo.Len() != 1 {
		t.Errorf("expected 1 stored event, got %d", repo.Len())
	}
}

func TestEventService_Create_DuplicateNaturalKey(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := svc.Create(context.Background(), validCreateRequest())
	if !errors.Is(err, ErrEventAlreadyExists) {
		t.Errorf("expected ErrEventAlreadyExists, got %v", err)
	}
}

func TestEventService_Create_SameSlugDifferentStart(t *testing.T) {
	svc, repo := newTestService()

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	req := validCreateRequest()
	req.StartsAt = "2009-10-10T20:00:00Z"
	req.EndsAt = "2009-10-10T23:00:00Z"

	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("Create with different start failed: %v", err)
	}
	if repo.Len() != 2 {
		t.Errorf("expected 2 stored events, got %d", repo.Len())
	}
}

func TestEventService_Create_InvalidTimestamp(t *testing.T) {
	svc, _ := newTestService()

	req := validCreateRequest()
	req.StartsAt = "2009-10-09 20:00:00"

	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestEventService_GetByID(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	resp, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if resp.Name != "Pumpkin Festival" {
		t.Errorf("expected name 'Pumpkin Festival', got %q", resp.Name)
	}

	_, err = svc.GetByID(context.Background(), "missing-id")
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventService_GetBySlug(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	later := validCreateRequest()
	later.StartsAt = "2009-10-10T20:00:00Z"
	later.EndsAt = "2009-10-10T23:00:00Z"
	if _, err := svc.Create(context.Background(), later); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	events, err := svc.GetBySlug(context.Background(), "pumpkin-festival", nil)
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].StartsAt > events[1].StartsAt {
		t.Error("expected events ordered by start time")
	}

	startsAt := time.Date(2009, 10, 10, 20, 0, 0, 0, time.UTC)
	single, err := svc.GetBySlug(context.Background(), "pumpkin-festival", &startsAt)
	if err != nil {
		t.Fatalf("GetBySlug with starts_at failed: %v", err)
	}
	if len(single) != 1 || single[0].StartsAt != "2009-10-10T20:00:00Z" {
		t.Errorf("expected the single matching occurrence, got %v", single)
	}

	_, err = svc.GetBySlug(context.Background(), "no-such-slug", nil)
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventService_List(t *testing.T) {
	svc, _ := newTestService()

	active := validCreateRequest()
	if _, err := svc.Create(context.Background(), active); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	inactive := validCreateRequest()
	inactive.Slug = "closed-house"
	inactive.IsActive = false
	if _, err := svc.Create(context.Background(), inactive); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	all, err := svc.List(context.Background(), &dto.ListEventsQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if all.TotalCount != 2 || all.Page != 1 || all.Limit != 20 {
		t.Errorf("unexpected list: total=%d page=%d limit=%d",
			all.TotalCount, all.Page, all.Limit)
	}

	activeOnly, err := svc.List(context.Background(), &dto.ListEventsQuery{IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("List with filter failed: %v", err)
	}
	if activeOnly.TotalCount != 1 {
		t.Errorf("expected 1 active event, got %d", activeOnly.TotalCount)
	}
}

func TestEventService_Update(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, &dto.UpdateEventRequest{
		Name:      strPtr("Pumpkin Festival Redux"),
		HauntedBy: strPtr("Headless Horseman"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Pumpkin Festival Redux" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.HauntedBy == nil || *updated.HauntedBy != "Headless Horseman" {
		t.Errorf("expected haunted_by set, got %v", updated.HauntedBy)
	}
	if updated.Slug != created.Slug {
		t.Error("slug must not change on update")
	}
}

func TestEventService_Update_RefreshesUpdatedAt(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stale := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	stored, _ := repo.GetByID(context.Background(), created.ID)
	stored.UpdatedAt = stale
	repo.Seed(stored)

	if _, err := svc.Update(context.Background(), created.ID, &dto.UpdateEventRequest{
		Name: strPtr("Pumpkin Festival Redux"),
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	after, _ := repo.GetByID(context.Background(), created.ID)
	if !after.UpdatedAt.After(stale) {
		t.Errorf("expected UpdatedAt refreshed past %v, got %v", stale, after.UpdatedAt)
	}
}

func TestEventService_Update_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), "missing-id", &dto.UpdateEventRequest{
		Name: strPtr("Nobody"),
	})
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventService_Update_StartConflict(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	later := validCreateRequest()
	later.StartsAt = "2009-10-10T20:00:00Z"
	later.EndsAt = "2009-10-10T23:00:00Z"
	second, err := svc.Create(context.Background(), later)
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	_, err = svc.Update(context.Background(), second.ID, &dto.UpdateEventRequest{
		StartsAt: strPtr("2009-10-09T20:00:00Z"),
	})
	if !errors.Is(err, ErrEventAlreadyExists) {
		t.Errorf("expected ErrEventAlreadyExists, got %v", err)
	}
}

func TestEventService_Delete(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("expected empty store, got %d", repo.Len())
	}

	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound on second delete, got %v", err)
	}
}

func TestEventService_Import(t *testing.T) {
	svc, repo := newTestService()

	csv := "name,slug,starts_at,ends_at,description,is_featured,is_has_ends_at,is_all_day,is_active,haunted_by\n" +
		"Pumpkin Festival,pumpkin-festival,2009-10-09 20:00:00,2009-10-09 23:00:00,Annual fall celebration,1,1,0,1,\n"

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Created != 1 {
		t.Errorf("expected 1 created, got %d", report.Created)
	}
	if repo.Len() != 1 {
		t.Errorf("expected 1 stored event, got %d", repo.Len())
	}
}
