package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ErrNumberOverflow is returned by FormatTicketNumber once a counter has
// grown past the 4-digit ticket number space.
var ErrNumberOverflow = errors.New("sequence value exceeds 4-digit ticket number space")

// Allocator hands out strictly increasing integers per named counter.
// The increment is a single upsert-and-return statement, so concurrent
// callers can never observe the same value and the row for a new name is
// created on its first allocation.
type Allocator struct {
	Bun *bun.DB
}

func NewAllocator(db *bun.DB) *Allocator {
	return &Allocator{Bun: db}
}

// NextValue returns the next value of the named counter, starting at 1
// for a name that has never been allocated before.
func (a *Allocator) NextValue(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("counter name must not be empty")
	}

	// Postgres requires the table-qualified column inside DO UPDATE,
	// SQLite wants it bare. Both run the find-and-increment as one
	// atomic statement.
	query := "INSERT INTO counters (name, value) VALUES (?, 1) " +
		"ON CONFLICT (name) DO UPDATE SET value = value + 1 RETURNING value"
	if a.Bun.Dialect().Name() == dialect.PG {
		query = "INSERT INTO counters (name, value) VALUES (?, 1) " +
			"ON CONFLICT (name) DO UPDATE SET value = counters.value + 1 RETURNING value"
	}

	var value int64
	if err := a.Bun.NewRaw(query, name).Scan(ctx, &value); err != nil {
		return 0, fmt.Errorf("counter %q increment failed: %w", name, err)
	}
	return value, nil
}

// FormatTicketNumber renders a sequence value as the zero-padded 4-digit
// string printed on tickets. Values past 9999 do not fit the printed
// format and are rejected rather than truncated.
func FormatTicketNumber(value int64) (string, error) {
	if value < 0 || value > 9999 {
		return "", fmt.Errorf("%w: %d", ErrNumberOverflow, value)
	}
	return fmt.Sprintf("%04d", value), nil
}
