package tickets_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"workshop-tickets/internal/models"
	"workshop-tickets/internal/pool"
	"workshop-tickets/internal/sequence"
	tickets "workshop-tickets/internal/tickets/service"
)

func setupStrategyDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	_, err = bunDB.NewCreateTable().Model((*models.Counter)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewCreateTable().Model((*models.TicketCredential)(nil)).Exec(ctx)
	require.NoError(t, err)

	return bunDB
}

func TestSequenceAllocatorFormatsNumbers(t *testing.T) {
	bunDB := setupStrategyDB(t)
	allocator := &tickets.SequenceAllocator{
		Sequence:    sequence.NewAllocator(bunDB),
		CounterName: "ticket",
	}

	cred, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0001", cred.Number)
	assert.Equal(t, "0001", cred.Reference())
	assert.Empty(t, cred.TicketID)
}

func TestSequenceAllocatorFlagsOverflow(t *testing.T) {
	bunDB := setupStrategyDB(t)
	ctx := context.Background()

	// Pre-position the counter at the edge of the printable space.
	_, err := bunDB.NewInsert().
		Model(&models.Counter{Name: "ticket", Value: 9999}).
		Exec(ctx)
	require.NoError(t, err)

	allocator := &tickets.SequenceAllocator{
		Sequence:    sequence.NewAllocator(bunDB),
		CounterName: "ticket",
	}

	_, err = allocator.Allocate(ctx)
	assert.True(t, errors.Is(err, sequence.ErrNumberOverflow))
}

func TestPoolAllocatorDrawsCredentials(t *testing.T) {
	bunDB := setupStrategyDB(t)
	ctx := context.Background()

	p := pool.New(bunDB)
	require.NoError(t, p.Seed(ctx, []models.TicketCredential{
		{ID: "1", TicketID: "WS-AAAA01", TicketSecret: "S1"},
	}))

	allocator := &tickets.PoolAllocator{Pool: p}

	cred, err := allocator.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "WS-AAAA01", cred.TicketID)
	assert.Equal(t, "S1", cred.TicketSecret)
	assert.Equal(t, "WS-AAAA01", cred.Reference())

	_, err = allocator.Allocate(ctx)
	assert.True(t, errors.Is(err, tickets.ErrPoolExhausted))
}
