package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxdesk/sla-service/internal/domain"
)

// SLARepository stores the per-ticket SLA record.
type SLARepository interface {
	Get(ctx context.Context, ticketID string) (*domain.SLARecord, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.SLAStatus) (*domain.SLARecord, error)
	// MarkBreached latches the breach flag. latched is false when the record was already breached.
	MarkBreached(ctx context.Context, ticketID string, at time.Time) (record *domain.SLARecord, latched bool, err error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository builds repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

const slaColumns = `ticket_id, start_time, sla_status, breached, breached_at, updated_at`

func (r *slaRepository) Get(ctx context.Context, ticketID string) (*domain.SLARecord, error) {
	const query = `SELECT ` + slaColumns + ` FROM sla_records WHERE ticket_id=$1`
	return scanSLARecord(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *slaRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.SLAStatus) (*domain.SLARecord, error) {
	const query = `
        UPDATE sla_records SET sla_status=$1, updated_at=NOW()
        WHERE ticket_id=$2
        RETURNING ` + slaColumns
	return scanSLARecord(r.pool.QueryRow(ctx, query, status, ticketID))
}

func (r *slaRepository) MarkBreached(ctx context.Context, ticketID string, at time.Time) (*domain.SLARecord, bool, error) {
	const query = `
        UPDATE sla_records SET breached=TRUE, breached_at=$1, updated_at=NOW()
        WHERE ticket_id=$2 AND breached=FALSE
        RETURNING ` + slaColumns
	record, err := scanSLARecord(r.pool.QueryRow(ctx, query, at, ticketID))
	if err == nil {
		return record, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.Get(ctx, ticketID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func scanSLARecord(row pgx.Row) (*domain.SLARecord, error) {
	var record domain.SLARecord
	if err := row.Scan(
		&record.TicketID,
		&record.StartTime,
		&record.SLAStatus,
		&record.Breached,
		&record.BreachedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
