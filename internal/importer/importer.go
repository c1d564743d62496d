package importer

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrcrandell/event-calendar-api/internal/domain"
	"github.com/mrcrandell/event-calendar-api/internal/dto"
	"github.com/mrcrandell/event-calendar-api/internal/repository"
	"github.com/mrcrandell/event-calendar-api/pkg/logger"
	"github.com/mrcrandell/event-calendar-api/pkg/telemetry"
)

// ErrAmbiguousKey is returned when the natural key matches more than one
// stored record. The row is skipped; nothing is written.
var ErrAmbiguousKey = errors.New("ambiguous natural key")

// Importer runs the CSV import pipeline: ingestion, normalization,
// reconciliation against the event store, and per-row reporting.
type Importer struct {
	repo       repository.EventRepository
	normalizer *Normalizer
	rowsTotal  *telemetry.Counter
	now        func() time.Time
}

// NewImporter creates an Importer that interprets legacy timestamps in
// the given zone.
func NewImporter(repo repository.EventRepository, location *time.Location) *Importer {
	rowsTotal, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "import_rows_total",
		Description: "Processed import rows by outcome",
		Unit:        "1",
	})
	if err != nil {
		rowsTotal = nil
	}

	return &Importer{
		repo:       repo,
		normalizer: NewNormalizer(location),
		rowsTotal:  rowsTotal,
		now:        time.Now,
	}
}

// Run processes the whole batch. Rows are handled sequentially in file
// order, because a later row may legitimately update a record an earlier
// row created. Row failures never abort the batch; only an unreadable
// buffer or invalid header fails the call before any row is processed.
func (i *Importer) Run(ctx context.Context, input io.Reader) (*dto.ImportReport, error) {
	reader, err := NewReader(input)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx)
	report := &dto.ImportReport{}

	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		outcome := i.processRow(ctx, row)
		if outcome.Kind == dto.ImportOutcomeFailed && outcome.Error == ErrAmbiguousKey.Error() {
			report.AmbiguousKeys++
			log.Warn("ambiguous natural key, store integrity violation",
				zap.Int("line", row.Line),
				zap.String("slug", row.Get("slug")),
			)
		}
		report.Add(outcome)

		if i.rowsTotal != nil {
			i.rowsTotal.Inc(ctx, telemetry.ImportOutcomeAttr(outcome.Kind))
		}
	}

	log.Info("import batch completed",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Int("ambiguous_keys", report.AmbiguousKeys),
	)

	return report, nil
}

// processRow normalizes one row and reconciles it against the store
func (i *Importer) processRow(ctx context.Context, row RawRow) dto.ImportOutcome {
	candidate, err := i.normalizer.Normalize(row)
	if err != nil {
		return dto.ImportOutcome{
			Line:  row.Line,
			Kind:  dto.ImportOutcomeFailed,
			Name:  row.Get("name"),
			Error: err.Error(),
		}
	}

	kind, err := i.reconcile(ctx, candidate)
	if err != nil {
		return dto.ImportOutcome{
			Line:     row.Line,
			Kind:     dto.ImportOutcomeFailed,
			Name:     candidate.Name,
			StartsAt: candidate.StartsAt,
			Error:    err.Error(),
		}
	}

	return dto.ImportOutcome{
		Line:     row.Line,
		Kind:     kind,
		Name:     candidate.Name,
		StartsAt: candidate.StartsAt,
	}
}

// reconcile upserts one candidate by its natural key (slug, startsAt).
// The whole row is retried once when the store error looks transient,
// and re-resolved once when a concurrent writer wins the insert race:
// the second pass then finds the winner's record and updates it.
func (i *Importer) reconcile(ctx context.Context, candidate *domain.Event) (string, error) {
	kind, err := i.reconcileOnce(ctx, candidate)
	if err == nil {
		return kind, nil
	}
	if isTransient(err) || errors.Is(err, repository.ErrDuplicateKey) {
		return i.reconcileOnce(ctx, candidate)
	}
	return "", err
}

// reconcileOnce resolves and writes one candidate inside a single
// transaction. Exactly one match is updated with a total merge; no
// match inserts a new record; multiple matches roll back without
// writing.
func (i *Importer) reconcileOnce(ctx context.Context, candidate *domain.Event) (string, error) {
	var kind string
	err := i.repo.InTx(ctx, func(store repository.EventRepository) error {
		matches, err := store.FindBySlugAndStart(ctx, candidate.Slug, candidate.StartsAt)
		if err != nil {
			return err
		}

		switch len(matches) {
		case 0:
			now := i.now()
			event := *candidate
			event.ID = uuid.New().String()
			event.CreatedAt = now
			event.UpdatedAt = now
			if err := store.Create(ctx, &event); err != nil {
				return err
			}
			kind = dto.ImportOutcomeCreated
			return nil

		case 1:
			existing := matches[0]
			existing.ApplyImport(candidate)
			existing.UpdatedAt = i.now()
			if err := store.Update(ctx, existing); err != nil {
				return err
			}
			kind = dto.ImportOutcomeUpdated
			return nil

		default:
			return ErrAmbiguousKey
		}
	})
	return kind, err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
