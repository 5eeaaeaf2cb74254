package sequence_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"workshop-tickets/internal/models"
	"workshop-tickets/internal/sequence"
)

func setupTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	// One connection keeps the in-memory database shared between
	// concurrent callers.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.Counter)(nil)).Exec(context.Background())
	require.NoError(t, err)

	return bunDB
}

func TestNextValueStartsAtOne(t *testing.T) {
	allocator := sequence.NewAllocator(setupTestDB(t))
	ctx := context.Background()

	value, err := allocator.NextValue(ctx, "ticket")
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = allocator.NextValue(ctx, "ticket")
	require.NoError(t, err)
	assert.Equal(t, int64(2), value)
}

func TestNextValueSeparateCounters(t *testing.T) {
	allocator := sequence.NewAllocator(setupTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		value, err := allocator.NextValue(ctx, "ticket")
		require.NoError(t, err)
		assert.Equal(t, int64(i), value)
	}

	value, err := allocator.NextValue(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), value, "a fresh counter starts over at 1")
}

func TestNextValueRejectsEmptyName(t *testing.T) {
	allocator := sequence.NewAllocator(setupTestDB(t))

	_, err := allocator.NextValue(context.Background(), "")
	assert.Error(t, err)
}

func TestNextValueConcurrent(t *testing.T) {
	allocator := sequence.NewAllocator(setupTestDB(t))
	ctx := context.Background()

	const callers = 50
	values := make(chan int64, callers)
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := allocator.NextValue(ctx, "ticket")
			assert.NoError(t, err)
			values <- value
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool, callers)
	for value := range values {
		assert.False(t, seen[value], "value %d allocated twice", value)
		seen[value] = true
	}
	// Gap-free: exactly {1..callers}.
	for i := int64(1); i <= callers; i++ {
		assert.True(t, seen[i], "value %d missing", i)
	}
}

func TestFormatTicketNumber(t *testing.T) {
	number, err := sequence.FormatTicketNumber(7)
	require.NoError(t, err)
	assert.Equal(t, "0007", number)

	number, err = sequence.FormatTicketNumber(9999)
	require.NoError(t, err)
	assert.Equal(t, "9999", number)
}

func TestFormatTicketNumberOverflow(t *testing.T) {
	_, err := sequence.FormatTicketNumber(10000)
	assert.True(t, errors.Is(err, sequence.ErrNumberOverflow))

	_, err = sequence.FormatTicketNumber(-1)
	assert.True(t, errors.Is(err, sequence.ErrNumberOverflow))
}
