package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"workshop-tickets/internal/models"
)

// ErrNoTicket reports that a query matched no ticket row.
var ErrNoTicket = errors.New("no matching ticket")

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	return err
}

// GetTicketByRef fetches the single ticket whose 4-digit number or pool
// ticket id equals ref.
func (d *DB) GetTicketByRef(ctx context.Context, ref string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_number = ? OR ticket_id = ?", ref, ref).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTicket
		}
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetTicketsByStudent(ctx context.Context, studentID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// MarkUsed flips is_used on the matching ticket and returns the updated
// row. The update is idempotent at this layer: a second call re-sets the
// flag and succeeds. ErrNoTicket when nothing matches.
func (d *DB) MarkUsed(ctx context.Context, ref string) (*models.Ticket, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("is_used = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("ticket_number = ? OR ticket_id = ?", ref, ref).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNoTicket
	}
	return d.GetTicketByRef(ctx, ref)
}

// CountTickets returns total and used counts in one pass over the table.
func (d *DB) CountTickets(ctx context.Context) (total int, used int, err error) {
	total, err = d.Bun.NewSelect().Model((*models.Ticket)(nil)).Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	used, err = d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("is_used = ?", true).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, used, nil
}

// GetTicketsByDateRange returns tickets created within [start, end]
// inclusive. Callers are responsible for day-boundary normalization.
func (d *DB) GetTicketsByDateRange(ctx context.Context, start, end time.Time) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
