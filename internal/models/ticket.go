package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is the durable record of one issued workshop ticket. Exactly one
// of TicketNumber (sequence mode) or TicketID+TicketSecret (pool mode) is
// set, depending on which issuance strategy produced it.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID           string    `bun:"id,pk" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	StudentID    string    `bun:"student_id,notnull" json:"studentId"`
	Email        string    `bun:"email,notnull" json:"email"`
	TicketNumber string    `bun:"ticket_number,nullzero" json:"ticketNumber,omitempty"`
	TicketID     string    `bun:"ticket_id,nullzero" json:"ticketId,omitempty"`
	TicketSecret string    `bun:"ticket_secret,nullzero" json:"ticketSecret,omitempty"`
	IsUsed       bool      `bun:"is_used" json:"isUsed"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Reference returns the identifier used to look the ticket up at
// check-in: the 4-digit number in sequence mode, the pool ticket id
// otherwise.
func (t Ticket) Reference() string {
	if t.TicketNumber != "" {
		return t.TicketNumber
	}
	return t.TicketID
}

// TicketStats is the aggregate returned by the stats endpoint. Unused is
// derived from the other two counts, never stored.
type TicketStats struct {
	TotalTickets  int `json:"totalTickets"`
	UsedTickets   int `json:"usedTickets"`
	UnusedTickets int `json:"unusedTickets"`
}
