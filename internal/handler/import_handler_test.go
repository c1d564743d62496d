package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrcrandell/event-calendar-api/internal/dto"
	"github.com/mrcrandell/event-calendar-api/internal/repository"
	"github.com/mrcrandell/event-calendar-api/internal/service"
)

const testMaxUploadBytes = 5 * 1024 * 1024

func setupImportRouter(maxBytes int64) (*gin.Engine, *repository.MemoryEventRepository) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryEventRepository()
	svc := service.NewEventService(repo, time.UTC)
	h := NewImportHandler(svc, maxBytes)

	router := gin.New()
	router.POST("/api/v1/events/import", h.Import)

	return router, repo
}

func uploadCSV(router *gin.Engine, csv string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "events.csv")
	_, _ = part.Write([]byte(csv))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportHandler_Success(t *testing.T) {
	router, repo := setupImportRouter(testMaxUploadBytes)

	csv := "name,slug,starts_at,ends_at,description,is_featured,is_has_ends_at,is_all_day,is_active,haunted_by\n" +
		"Pumpkin Festival,pumpkin-festival,2009-10-09 20:00:00,2009-10-09 23:00:00,Annual fall celebration,1,1,0,1,\n" +
		"Harvest Dance,harvest-dance,2009-10-11 19:00:00,2009-10-11 22:00:00,,0,1,0,1,\n"

	w := uploadCSV(router, csv)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data dto.ImportReport `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Data.Created != 2 || resp.Data.Failed != 0 {
		t.Errorf("expected 2 created, got created=%d failed=%d", resp.Data.Created, resp.Data.Failed)
	}
	if repo.Len() != 2 {
		t.Errorf("expected 2 stored events, got %d", repo.Len())
	}
}

func TestImportHandler_PartialFailureStillSucceeds(t *testing.T) {
	router, _ := setupImportRouter(testMaxUploadBytes)

	csv := "name,slug,starts_at,ends_at,description,is_featured,is_has_ends_at,is_all_day,is_active,haunted_by\n" +
		"Broken,broken,not-a-date,2009-10-09 23:00:00,,0,0,0,1,\n"

	w := uploadCSV(router, csv)
	if w.Code != http.StatusOK {
		t.Fatalf("row failures are reported, not rejected; got %d", w.Code)
	}

	var resp struct {
		Data dto.ImportReport `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Data.Failed != 1 {
		t.Errorf("expected 1 failed row, got %d", resp.Data.Failed)
	}
}

func TestImportHandler_RejectsBadHeader(t *testing.T) {
	router, repo := setupImportRouter(testMaxUploadBytes)

	w := uploadCSV(router, "name,starts_at\nPumpkin Festival,2009-10-09 20:00:00\n")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing required column, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "IMPORT_REJECTED") {
		t.Errorf("expected IMPORT_REJECTED code, got %s", w.Body.String())
	}
	if repo.Len() != 0 {
		t.Errorf("rejected batch must not write, got %d records", repo.Len())
	}
}

func TestImportHandler_RejectsEmptyFile(t *testing.T) {
	router, _ := setupImportRouter(testMaxUploadBytes)

	w := uploadCSV(router, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty file, got %d", w.Code)
	}
}

func TestImportHandler_WrongContentType(t *testing.T) {
	router, _ := setupImportRouter(testMaxUploadBytes)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/import",
		strings.NewReader("name,slug,starts_at\n"))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for non-multipart upload, got %d", w.Code)
	}
}

func TestImportHandler_WrongFileType(t *testing.T) {
	router, _ := setupImportRouter(testMaxUploadBytes)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="events.png"`)
	partHeader.Set("Content-Type", "image/png")
	part, _ := writer.CreatePart(partHeader)
	_, _ = part.Write([]byte("not a csv"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for non-CSV file part, got %d", w.Code)
	}
}

func TestImportHandler_MissingFileField(t *testing.T) {
	router, _ := setupImportRouter(testMaxUploadBytes)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("notes", "no file here")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing file field, got %d", w.Code)
	}
}

func TestImportHandler_UploadTooLarge(t *testing.T) {
	router, _ := setupImportRouter(256)

	csv := "name,slug,starts_at,ends_at,description,is_featured,is_has_ends_at,is_all_day,is_active,haunted_by\n" +
		strings.Repeat("Big Event,big-event,2009-10-09 20:00:00,2009-10-09 23:00:00,padding,0,1,0,1,\n", 64)

	w := uploadCSV(router, csv)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for oversized upload, got %d", w.Code)
	}
}
