package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"workshop-tickets/internal/models"
)

// ErrEmpty reports that no credentials remain in the pool. Exhaustion is
// an expected terminal condition for issuance, not a fault.
var ErrEmpty = errors.New("credential pool is empty")

// Pool is the finite set of pre-provisioned ticket credentials. Drawing
// is a destructive pop: the delete-and-return happens in one statement,
// so no credential can ever be handed to two callers. Which row comes
// back is unspecified.
type Pool struct {
	Bun *bun.DB
}

func New(db *bun.DB) *Pool {
	return &Pool{Bun: db}
}

// DrawOne removes one arbitrary credential from the pool and returns it.
// Returns ErrEmpty when nothing is left.
func (p *Pool) DrawOne(ctx context.Context) (*models.TicketCredential, error) {
	query := "DELETE FROM ticket_credentials WHERE id = " +
		"(SELECT id FROM ticket_credentials LIMIT 1) " +
		"RETURNING id, ticket_id, ticket_secret"
	if p.Bun.Dialect().Name() == dialect.PG {
		// SKIP LOCKED keeps concurrent draws from queueing on the same
		// row and then deleting nothing.
		query = "DELETE FROM ticket_credentials WHERE id = " +
			"(SELECT id FROM ticket_credentials LIMIT 1 FOR UPDATE SKIP LOCKED) " +
			"RETURNING id, ticket_id, ticket_secret"
	}

	var cred models.TicketCredential
	err := p.Bun.NewRaw(query).Scan(ctx, &cred.ID, &cred.TicketID, &cred.TicketSecret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("credential draw failed: %w", err)
	}
	return &cred, nil
}

// Seed bulk-inserts credentials into the pool. Used by cmd/seedpool and
// by tests; the running service never adds to the pool.
func (p *Pool) Seed(ctx context.Context, creds []models.TicketCredential) error {
	if len(creds) == 0 {
		return nil
	}
	if _, err := p.Bun.NewInsert().Model(&creds).Exec(ctx); err != nil {
		return fmt.Errorf("pool seed failed: %w", err)
	}
	return nil
}

// Size returns the number of credentials still available.
func (p *Pool) Size(ctx context.Context) (int, error) {
	count, err := p.Bun.NewSelect().Model((*models.TicketCredential)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("pool count failed: %w", err)
	}
	return count, nil
}
