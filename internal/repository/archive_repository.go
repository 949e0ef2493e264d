package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ArchiveEntry is one archived dispatch, flattened for the archive table.
type ArchiveEntry struct {
	ID            string
	RecordID      string
	CustomerEmail string
	Subject       string
	Category      *domain.ComplaintCategory
	Priority      *domain.PriorityLevel
	Source        domain.RecordSource
	ResponseBody  string
	Delivered     bool
	DispatchedAt  time.Time
	ArchivedAt    time.Time
}

// ArchiveRepository persists dispatched records into the write-behind archive.
type ArchiveRepository interface {
	Create(ctx context.Context, entry *ArchiveEntry) error
	ListByCustomer(ctx context.Context, email string, limit int) ([]ArchiveEntry, error)
}

type archiveRepository struct {
	pool *pgxpool.Pool
}

// NewArchiveRepository instantiates repository.
func NewArchiveRepository(pool *pgxpool.Pool) ArchiveRepository {
	return &archiveRepository{pool: pool}
}

func (r *archiveRepository) Create(ctx context.Context, entry *ArchiveEntry) error {
	const query = `
        INSERT INTO dispatch_archive (record_id, customer_email, subject, category, priority, source, response_body, delivered, dispatched_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, archived_at`
	return r.pool.QueryRow(ctx, query,
		entry.RecordID,
		entry.CustomerEmail,
		entry.Subject,
		entry.Category,
		entry.Priority,
		entry.Source,
		entry.ResponseBody,
		entry.Delivered,
		entry.DispatchedAt,
	).Scan(&entry.ID, &entry.ArchivedAt)
}

func (r *archiveRepository) ListByCustomer(ctx context.Context, email string, limit int) ([]ArchiveEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, record_id, customer_email, subject, category, priority, source, response_body, delivered, dispatched_at, archived_at
        FROM dispatch_archive WHERE customer_email=$1
        ORDER BY dispatched_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArchiveEntries(rows)
}

func scanArchiveEntries(rows pgx.Rows) ([]ArchiveEntry, error) {
	var result []ArchiveEntry
	for rows.Next() {
		var entry ArchiveEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.RecordID,
			&entry.CustomerEmail,
			&entry.Subject,
			&entry.Category,
			&entry.Priority,
			&entry.Source,
			&entry.ResponseBody,
			&entry.Delivered,
			&entry.DispatchedAt,
			&entry.ArchivedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
