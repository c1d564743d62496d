package importer

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewReader_EmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestNewReader_MissingRequiredColumn(t *testing.T) {
	input := "name,starts_at\nFall Festival,2009-10-09 20:00:00\n"

	_, err := NewReader(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing slug column")
	}
	if !strings.Contains(err.Error(), "slug") {
		t.Errorf("expected error to name the missing column, got %v", err)
	}
}

func TestNewReader_StripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFname,slug,starts_at\nFall Festival,fall-festival,2009-10-09 20:00:00\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := row.Get("name"); got != "Fall Festival" {
		t.Errorf("expected name 'Fall Festival', got %q", got)
	}
}

func TestReader_ExtraColumnsIgnored(t *testing.T) {
	input := "name,slug,starts_at,legacy_id\nFall Festival,fall-festival,2009-10-09 20:00:00,42\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := row.Get("slug"); got != "fall-festival" {
		t.Errorf("expected slug 'fall-festival', got %q", got)
	}
}

func TestReader_LineNumbers(t *testing.T) {
	input := "name,slug,starts_at\nFirst,first,2009-10-09 20:00:00\nSecond,second,2009-10-10 20:00:00\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	first, _ := r.Next()
	if first.Line != 2 {
		t.Errorf("expected first data row at line 2, got %d", first.Line)
	}

	second, _ := r.Next()
	if second.Line != 3 {
		t.Errorf("expected second data row at line 3, got %d", second.Line)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last row, got %v", err)
	}
}

func TestReader_MalformedLineIsRowScoped(t *testing.T) {
	input := "name,slug,starts_at\nBad,ba\"d,2009-10-09 20:00:00\nGood,good,2009-10-10 20:00:00\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	bad, err := r.Next()
	if err != nil {
		t.Fatalf("malformed line should not fail the batch, got %v", err)
	}
	if bad.Err == nil {
		t.Error("expected Err set on malformed row")
	}

	good, err := r.Next()
	if err != nil {
		t.Fatalf("Next after malformed row failed: %v", err)
	}
	if got := good.Get("slug"); got != "good" {
		t.Errorf("expected slug 'good' on following row, got %q", got)
	}
}

func TestReader_InvalidEncodingIsRowScoped(t *testing.T) {
	input := "name,slug,starts_at\nBad\xff\xfe,bad,2009-10-09 20:00:00\nGood,good,2009-10-10 20:00:00\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	bad, err := r.Next()
	if err != nil {
		t.Fatalf("invalid encoding should not fail the batch, got %v", err)
	}
	if !errors.Is(bad.Err, ErrBadEncoding) {
		t.Errorf("expected ErrBadEncoding, got %v", bad.Err)
	}
	if bad.Line != 2 {
		t.Errorf("expected line 2, got %d", bad.Line)
	}

	good, err := r.Next()
	if err != nil {
		t.Fatalf("Next after mangled row failed: %v", err)
	}
	if got := good.Get("slug"); got != "good" {
		t.Errorf("expected slug 'good' on following row, got %q", got)
	}
}

func TestReader_QuotedNewlineLineNumbers(t *testing.T) {
	input := "name,slug,starts_at\n\"Fall\nFestival\",fall-festival,2009-10-09 20:00:00\nSecond,second,2009-10-10 20:00:00\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	first, _ := r.Next()
	if first.Line != 2 {
		t.Errorf("expected first record attributed to line 2, got %d", first.Line)
	}
	if got := first.Get("name"); got != "Fall\nFestival" {
		t.Errorf("expected embedded newline preserved, got %q", got)
	}

	// The first record spans two physical lines
	second, _ := r.Next()
	if second.Line != 4 {
		t.Errorf("expected second record at physical line 4, got %d", second.Line)
	}
}

func TestRawRow_GetTrimsWhitespace(t *testing.T) {
	row := RawRow{Fields: map[string]string{"name": "  Fall Festival  "}}
	if got := row.Get("name"); got != "Fall Festival" {
		t.Errorf("expected trimmed value, got %q", got)
	}
	if got := row.Get("missing"); got != "" {
		t.Errorf("expected empty string for absent column, got %q", got)
	}
}
