package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrcrandell/event-calendar-api/internal/dto"
	"github.com/mrcrandell/event-calendar-api/internal/service"
	"github.com/mrcrandell/event-calendar-api/pkg/logger"
	"github.com/mrcrandell/event-calendar-api/pkg/response"
)

// EventHandler handles event CRUD endpoints
type EventHandler struct {
	eventService service.EventService
}

func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// List handles GET /api/v1/events
func (h *EventHandler) List(c *gin.Context) {
	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters: "+err.Error()))
		return
	}

	result, err := h.eventService.List(c.Request.Context(), &query)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.InternalError("Failed to list events"))
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// GetBySlug handles GET /api/v1/events/:slug. An optional ?starts_at=
// query narrows a recurring slug down to a single occurrence.
func (h *EventHandler) GetBySlug(c *gin.Context) {
	slug := c.Param("slug")

	var startsAt *time.Time
	if raw := c.Query("starts_at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.BadRequest("starts_at must be RFC3339"))
			return
		}
		startsAt = &parsed
	}

	events, err := h.eventService.GetBySlug(c.Request.Context(), slug, startsAt)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to get event", zap.Error(err), zap.String("slug", slug))
		c.JSON(http.StatusInternalServerError, response.InternalError("Failed to get event"))
		return
	}

	// A slug alone can name several occurrences; single-element lists
	// are still returned as a list so clients have one shape to parse.
	c.JSON(http.StatusOK, response.Success(events))
}

// Create handles POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body: "+err.Error()))
		return
	}

	if ok, msg := req.ValidateSlug(); !ok {
		c.JSON(http.StatusBadRequest, response.ValidationFailed(map[string]string{"slug": msg}))
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventAlreadyExists):
			c.JSON(http.StatusConflict, response.Error(response.ErrCodeDuplicateEntry,
				"An event with this slug and start time already exists"))
		case errors.Is(err, service.ErrInvalidTimestamp):
			c.JSON(http.StatusBadRequest, response.BadRequest("Timestamps must be RFC3339"))
		default:
			logger.ErrorCtx(c.Request.Context(), "failed to create event", zap.Error(err))
			c.JSON(http.StatusInternalServerError, response.InternalError("Failed to create event"))
		}
		return
	}

	c.JSON(http.StatusCreated, response.Success(event))
}

// Update handles PUT /api/v1/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body: "+err.Error()))
		return
	}

	if ok, msg := req.Validate(); !ok {
		c.JSON(http.StatusBadRequest, response.BadRequest(msg))
		return
	}

	event, err := h.eventService.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
		case errors.Is(err, service.ErrEventAlreadyExists):
			c.JSON(http.StatusConflict, response.Error(response.ErrCodeDuplicateEntry,
				"An event with this slug and start time already exists"))
		case errors.Is(err, service.ErrInvalidTimestamp):
			c.JSON(http.StatusBadRequest, response.BadRequest("Timestamps must be RFC3339"))
		default:
			logger.ErrorCtx(c.Request.Context(), "failed to update event", zap.Error(err), zap.String("event_id", id))
			c.JSON(http.StatusInternalServerError, response.InternalError("Failed to update event"))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// Delete handles DELETE /api/v1/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.eventService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to delete event", zap.Error(err), zap.String("event_id", id))
		c.JSON(http.StatusInternalServerError, response.InternalError("Failed to delete event"))
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"deleted": true}))
}
