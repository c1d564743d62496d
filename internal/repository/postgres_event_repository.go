package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrcrandell/event-calendar-api/internal/domain"
)

// ErrEventNotFound is returned when an update or delete targets a missing row
var ErrEventNotFound = errors.New("event not found")

// ErrDuplicateKey is returned when an insert collides with the unique
// index on (slug, starts_at), e.g. when two imports race on the same row
var ErrDuplicateKey = errors.New("duplicate natural key")

const uniqueViolationCode = "23505"

const eventColumns = `id, name, slug, starts_at, ends_at, description, haunted_by,
	is_featured, is_has_ends_at, is_all_day, is_active, created_at, updated_at`

// queryer is the subset of pgx operations the repository needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same methods serve pooled
// and transactional access.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	db   queryer
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{db: pool, pool: pool}
}

// InTx runs fn against a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *PostgresEventRepository) InTx(ctx context.Context, fn func(EventRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &PostgresEventRepository{db: tx, pool: r.pool}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// scanEvent scans a row into an Event struct
func (r *PostgresEventRepository) scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Slug,
		&event.StartsAt,
		&event.EndsAt,
		&event.Description,
		&event.HauntedBy,
		&event.IsFeatured,
		&event.IsHasEndsAt,
		&event.IsAllDay,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

func (r *PostgresEventRepository) scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.Slug,
			&event.StartsAt,
			&event.EndsAt,
			&event.Description,
			&event.HauntedBy,
			&event.IsFeatured,
			&event.IsHasEndsAt,
			&event.IsAllDay,
			&event.IsActive,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, name, slug, starts_at, ends_at, description, haunted_by,
			is_featured, is_has_ends_at, is_all_day, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.Name,
		event.Slug,
		event.StartsAt,
		event.EndsAt,
		event.Description,
		event.HauntedBy,
		event.IsFeatured,
		event.IsHasEndsAt,
		event.IsAllDay,
		event.IsActive,
		event.CreatedAt,
		event.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %s @ %v", ErrDuplicateKey, event.Slug, event.StartsAt)
	}
	return err
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(r.db.QueryRow(ctx, query, id))
}

// GetBySlug retrieves all event instances sharing a slug, ordered by start
func (r *PostgresEventRepository) GetBySlug(ctx context.Context, slug string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slug = $1 ORDER BY starts_at ASC`
	rows, err := r.db.Query(ctx, query, slug)
	if err != nil {
		return nil, err
	}
	return r.scanEvents(rows)
}

// FindBySlugAndStart retrieves every event matching the natural key
func (r *PostgresEventRepository) FindBySlugAndStart(ctx context.Context, slug string, startsAt time.Time) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slug = $1 AND starts_at = $2`
	rows, err := r.db.Query(ctx, query, slug, startsAt)
	if err != nil {
		return nil, err
	}
	return r.scanEvents(rows)
}

// List retrieves events with pagination and filters
func (r *PostgresEventRepository) List(ctx context.Context, page, limit int, isActive, isFeatured *bool) ([]*domain.Event, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if isActive != nil {
		where += ` AND is_active = $` + strconv.Itoa(argIdx)
		args = append(args, *isActive)
		argIdx++
	}
	if isFeatured != nil {
		where += ` AND is_featured = $` + strconv.Itoa(argIdx)
		args = append(args, *isFeatured)
		argIdx++
	}

	countQuery := `SELECT COUNT(*) FROM events` + where
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := `SELECT ` + eventColumns + ` FROM events` + where +
		` ORDER BY starts_at ASC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	events, err := r.scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Update updates an event
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET name = $2, slug = $3, starts_at = $4, ends_at = $5, description = $6,
			haunted_by = $7, is_featured = $8, is_has_ends_at = $9, is_all_day = $10,
			is_active = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		event.ID,
		event.Name,
		event.Slug,
		event.StartsAt,
		event.EndsAt,
		event.Description,
		event.HauntedBy,
		event.IsFeatured,
		event.IsHasEndsAt,
		event.IsAllDay,
		event.IsActive,
		event.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes an event by ID
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}
