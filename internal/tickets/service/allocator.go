package tickets

import (
	"context"
	"errors"
	"fmt"

	"workshop-tickets/internal/pool"
	"workshop-tickets/internal/sequence"
)

// IssuedCredential is what an issuance strategy hands the lifecycle
// manager: either a printed 4-digit number (sequence mode) or an
// id/secret pair consumed from the pool (pool mode).
type IssuedCredential struct {
	Number       string
	TicketID     string
	TicketSecret string
}

// Reference returns the lookup key the credential will be known by.
func (c IssuedCredential) Reference() string {
	if c.Number != "" {
		return c.Number
	}
	return c.TicketID
}

// Allocator is one of the two issuance strategies. Allocate either
// consumes a scarce resource and returns the credential, or fails
// without side effects.
type Allocator interface {
	Allocate(ctx context.Context) (IssuedCredential, error)
}

// SequenceAllocator issues numbered tickets from a named counter.
type SequenceAllocator struct {
	Sequence    *sequence.Allocator
	CounterName string
}

func (a *SequenceAllocator) Allocate(ctx context.Context) (IssuedCredential, error) {
	value, err := a.Sequence.NextValue(ctx, a.CounterName)
	if err != nil {
		return IssuedCredential{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	number, err := sequence.FormatTicketNumber(value)
	if err != nil {
		// The counter has outgrown the printed format; the value is
		// consumed but must not be issued truncated.
		return IssuedCredential{}, err
	}
	return IssuedCredential{Number: number}, nil
}

// PoolAllocator issues tickets by destructively drawing pre-provisioned
// credentials.
type PoolAllocator struct {
	Pool *pool.Pool
}

func (a *PoolAllocator) Allocate(ctx context.Context) (IssuedCredential, error) {
	cred, err := a.Pool.DrawOne(ctx)
	if err != nil {
		if errors.Is(err, pool.ErrEmpty) {
			return IssuedCredential{}, ErrPoolExhausted
		}
		return IssuedCredential{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return IssuedCredential{TicketID: cred.TicketID, TicketSecret: cred.TicketSecret}, nil
}
