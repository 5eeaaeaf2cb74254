package models

import "github.com/uptrace/bun"

// Counter holds one named monotonic sequence. Rows are created lazily on
// first allocation and only ever mutated by the atomic increment in
// internal/sequence.
type Counter struct {
	bun.BaseModel `bun:"table:counters"`

	Name  string `bun:"name,pk"`
	Value int64  `bun:"value,notnull"`
}
