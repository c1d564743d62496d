package handler

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrcrandell/event-calendar-api/internal/importer"
	"github.com/mrcrandell/event-calendar-api/internal/service"
	"github.com/mrcrandell/event-calendar-api/pkg/logger"
	"github.com/mrcrandell/event-calendar-api/pkg/response"
)

// ImportHandler handles the CSV import endpoint
type ImportHandler struct {
	eventService   service.EventService
	maxUploadBytes int64
}

func NewImportHandler(eventService service.EventService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{
		eventService:   eventService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Import handles POST /api/v1/events/import. The upload is a multipart
// form with a single "file" part containing a CSV export.
func (h *ImportHandler) Import(c *gin.Context) {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		c.JSON(http.StatusUnsupportedMediaType, response.Error(response.ErrCodeUnsupportedMedia,
			"Content-Type must be multipart/form-data"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, response.Error(response.ErrCodePayloadTooLarge,
				"Upload exceeds the size limit"))
			return
		}
		c.JSON(http.StatusBadRequest, response.BadRequest("Missing or unreadable \"file\" form field"))
		return
	}
	defer file.Close()

	if !allowedPartType(header.Header.Get("Content-Type")) {
		c.JSON(http.StatusUnsupportedMediaType, response.Error(response.ErrCodeUnsupportedMedia,
			"Uploaded file must be CSV or plain text"))
		return
	}

	report, err := h.eventService.Import(c.Request.Context(), file)
	if err != nil {
		if isBatchRejection(err) {
			c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeImportRejected, err.Error()))
			return
		}
		logger.ErrorCtx(c.Request.Context(), "import failed",
			zap.Error(err),
			zap.String("filename", header.Filename),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError("Import failed"))
		return
	}

	logger.InfoCtx(c.Request.Context(), "import completed",
		zap.String("filename", header.Filename),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)

	c.JSON(http.StatusOK, response.Success(report))
}

// allowedPartType accepts the content types browsers and CLIs attach to
// CSV uploads. An absent type is accepted; the parser rejects garbage.
func allowedPartType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/csv", "text/plain", "application/csv", "application/octet-stream":
		return true
	}
	return false
}

// isBatchRejection reports whether the error means the whole upload was
// unusable, as opposed to an internal failure.
func isBatchRejection(err error) bool {
	return errors.Is(err, importer.ErrEmptyInput) ||
		errors.Is(err, importer.ErrMissingHeader) ||
		errors.Is(err, importer.ErrHeaderMismatch) ||
		errors.Is(err, importer.ErrBadEncoding)
}
