package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Batch-level errors: nothing is processed when these occur.
var (
	ErrEmptyInput     = errors.New("input is empty")
	ErrMissingHeader  = errors.New("missing header row")
	ErrHeaderMismatch = errors.New("invalid header")
	ErrBadEncoding    = errors.New("input is not valid UTF-8")
)

// Expected CSV columns. Extra columns are ignored; missing required
// columns fail the whole batch before any row is processed.
var (
	requiredColumns = []string{"name", "slug", "starts_at"}

	expectedColumns = []string{
		"name", "slug", "starts_at", "ends_at", "description",
		"is_featured", "is_has_ends_at", "is_all_day", "is_active", "haunted_by",
	}
)

// RawRow is one CSV line keyed by column name, with its 1-based line
// number for error attribution. Err is set for lines the CSV reader
// could not parse; such rows are row-scoped failures, not batch errors.
type RawRow struct {
	Line   int
	Fields map[string]string
	Err    error
}

// Get returns the named field, trimmed of surrounding whitespace
func (r RawRow) Get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// Reader streams RawRows from an uploaded CSV buffer. It validates the
// header eagerly and then yields rows one at a time; it never buffers
// the parsed rows.
type Reader struct {
	csv    *csv.Reader
	header []string
	line   int
}

// NewReader wraps the input in a streaming CSV reader and validates the
// header row. A BOM is stripped if present.
func NewReader(input io.Reader) (*Reader, error) {
	br := stripBOM(bufio.NewReader(input))
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("%w: %v", ErrHeaderMismatch, err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if !utf8.ValidString(header[i]) {
			return nil, ErrBadEncoding
		}
	}

	if err := validateHeader(header); err != nil {
		return nil, err
	}

	return &Reader{
		csv:    cr,
		header: header,
		line:   1,
	}, nil
}

func stripBOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func validateHeader(header []string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	for _, req := range requiredColumns {
		if _, ok := have[req]; !ok {
			return fmt.Errorf("%w: missing required column %q, expected columns: %s",
				ErrHeaderMismatch, req, strings.Join(expectedColumns, ", "))
		}
	}
	return nil
}

// Next returns the next row, or io.EOF when the input is exhausted.
// A malformed CSV line or a field that is not valid UTF-8 is returned
// as a RawRow with Err set so the caller can record a row-scoped
// failure and continue. Line is the physical line where the record
// starts, so quoted fields containing newlines do not skew attribution.
func (r *Reader) Next() (RawRow, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RawRow{}, io.EOF
		}
		line := r.line + 1
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			line = parseErr.StartLine
		}
		r.line = line
		return RawRow{Line: line, Err: err}, nil
	}
	line, _ := r.csv.FieldPos(0)
	r.line = line

	fields := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(record) {
			if !utf8.ValidString(record[i]) {
				return RawRow{Line: line, Err: fmt.Errorf("%w: field %q", ErrBadEncoding, name)}, nil
			}
			fields[name] = record[i]
		}
	}

	return RawRow{Line: line, Fields: fields}, nil
}
