//go:build integration

package pool_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"workshop-tickets/internal/pool"
)

// Exercises the SKIP LOCKED draw path against a real Postgres, where
// draws from separate connections genuinely contend.
func TestDrawOneConcurrentPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "tickets",
			"POSTGRES_PASSWORD": "tickets",
			"POSTGRES_DB":       "tickets",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://tickets:tickets@%s:%s/tickets?sslmode=disable", host, port.Port())
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.ExecContext(ctx, `CREATE TABLE ticket_credentials (
		id TEXT PRIMARY KEY,
		ticket_id TEXT NOT NULL UNIQUE,
		ticket_secret TEXT NOT NULL
	)`)
	require.NoError(t, err)

	p := pool.New(bunDB)
	const poolSize = 20
	const callers = 50
	seedCredentials(t, p, poolSize)

	drawn := sync.Map{}
	var succeeded, emptied int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := p.DrawOne(ctx)
			if err != nil {
				assert.True(t, errors.Is(err, pool.ErrEmpty))
				mu.Lock()
				emptied++
				mu.Unlock()
				return
			}
			_, dup := drawn.LoadOrStore(cred.TicketID, true)
			assert.False(t, dup, "credential %s handed out twice", cred.TicketID)
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(poolSize), succeeded)
	assert.Equal(t, int64(callers-poolSize), emptied)

	size, err := p.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}
