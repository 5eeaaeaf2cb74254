package models

import "github.com/uptrace/bun"

// TicketCredential is one pre-provisioned, not-yet-issued (id, secret)
// pair in the pool. Drawing a credential deletes its row; a row present
// in the table is by definition still available.
type TicketCredential struct {
	bun.BaseModel `bun:"table:ticket_credentials"`

	ID           string `bun:"id,pk"`
	TicketID     string `bun:"ticket_id,notnull,unique"`
	TicketSecret string `bun:"ticket_secret,notnull"`
}
