package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"workshop-tickets/internal/kafka"
	"workshop-tickets/internal/models"
	ticketdb "workshop-tickets/internal/tickets/db"
)

// Matches the address-shape check the registration form applies.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type TicketDBLayer interface {
	CreateTicket(ctx context.Context, ticket models.Ticket) error
	GetTicketByRef(ctx context.Context, ref string) (*models.Ticket, error)
	GetTicketsByStudent(ctx context.Context, studentID string) ([]models.Ticket, error)
	MarkUsed(ctx context.Context, ref string) (*models.Ticket, error)
	CountTickets(ctx context.Context) (total int, used int, err error)
	GetTicketsByDateRange(ctx context.Context, start, end time.Time) ([]models.Ticket, error)
}

// Mailer is the external delivery collaborator. Send reports only
// binary success or failure for a fully rendered message.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Renderer produces the HTML mail body for one issued credential.
type Renderer interface {
	Render(name string, cred IssuedCredential) (string, error)
}

// Publisher streams lifecycle events. Publishing is best-effort; a
// failed publish never fails the request.
type Publisher interface {
	Publish(topic, key string, value []byte) error
}

type Logger interface {
	Info(category, message string)
	Warn(category, message string)
	Error(category, message string)
}

// IssueRequest is one attendee to issue a ticket to.
type IssueRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"studentId"`
}

// BatchResult is the per-record outcome of a bulk issuance. Either
// Ticket or Err is set.
type BatchResult struct {
	Request IssueRequest   `json:"request"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
	Err     error          `json:"-"`
}

// TicketService orchestrates issuance (draw, deliver, persist) and owns
// every Ticket state transition. The three steps commit independently;
// the failure on any step leaves the earlier steps' effects in place.
type TicketService struct {
	DB        TicketDBLayer
	Allocator Allocator
	Mailer    Mailer
	Renderer  Renderer
	Publisher Publisher
	Logger    Logger

	Subject   string
	DayOffset *time.Location
}

func NewTicketService(db TicketDBLayer, alloc Allocator, mailer Mailer, renderer Renderer) *TicketService {
	return &TicketService{
		DB:        db,
		Allocator: alloc,
		Mailer:    mailer,
		Renderer:  renderer,
		Subject:   "Workshop ticket",
		DayOffset: time.FixedZone("GMT+7", 7*60*60),
	}
}

func (s *TicketService) logInfo(category, msg string) {
	if s.Logger != nil {
		s.Logger.Info(category, msg)
	}
}

func (s *TicketService) logWarn(category, msg string) {
	if s.Logger != nil {
		s.Logger.Warn(category, msg)
	}
}

func (s *TicketService) logError(category, msg string) {
	if s.Logger != nil {
		s.Logger.Error(category, msg)
	}
}

// IssueSingle runs one issuance attempt: draw a credential, render and
// send the ticket mail, persist the record, in that order, each step
// gated on the previous. A credential consumed by a later-failing step
// is not returned (see the delivery/persistence error kinds).
func (s *TicketService) IssueSingle(ctx context.Context, req IssueRequest) (*models.Ticket, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	cred, err := s.Allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}
	s.logInfo("ISSUE", fmt.Sprintf("credential %s drawn for student %s", cred.Reference(), req.StudentID))

	body, err := s.Renderer.Render(req.Name, cred)
	if err != nil {
		return nil, fmt.Errorf("render ticket mail: %w", err)
	}

	if err := s.Mailer.Send(req.Email, s.Subject, body); err != nil {
		s.logError("ISSUE", fmt.Sprintf("delivery to %s failed, credential %s is spent: %v", req.Email, cred.Reference(), err))
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	s.logInfo("ISSUE", fmt.Sprintf("credential %s delivered to %s", cred.Reference(), req.Email))

	now := time.Now().UTC()
	ticket := models.Ticket{
		ID:           uuid.New().String(),
		Name:         req.Name,
		StudentID:    req.StudentID,
		Email:        req.Email,
		TicketNumber: cred.Number,
		TicketID:     cred.TicketID,
		TicketSecret: cred.TicketSecret,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		s.logError("ISSUE", fmt.Sprintf("persist after delivery failed for credential %s: %v", cred.Reference(), err))
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	s.logInfo("ISSUE", fmt.Sprintf("ticket %s persisted for student %s", ticket.Reference(), req.StudentID))

	s.publish(kafka.TopicTicketIssued, ticket)
	return &ticket, nil
}

// IssueBatch applies IssueSingle to each record independently. A failed
// record is logged and reported in its slot; later records still run.
func (s *TicketService) IssueBatch(ctx context.Context, reqs []IssueRequest) []BatchResult {
	results := make([]BatchResult, 0, len(reqs))
	for i, req := range reqs {
		ticket, err := s.IssueSingle(ctx, req)
		if err != nil {
			s.logWarn("BATCH", fmt.Sprintf("record %d (%s) failed: %v", i+1, req.Email, err))
		}
		results = append(results, BatchResult{Request: req, Ticket: ticket, Err: err})
	}
	return results
}

// FindByStudent returns every ticket held by the student. Zero matches
// is a reportable not-found state, not an empty success.
func (s *TicketService) FindByStudent(ctx context.Context, studentID string) ([]models.Ticket, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: student id must not be empty", ErrInvalidInput)
	}
	found, err := s.DB.GetTicketsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no tickets for student %s", ErrNotFound, studentID)
	}
	return found, nil
}

// FindByReference fetches one ticket by its 4-digit number or ticket id.
func (s *TicketService) FindByReference(ctx context.Context, ref string) (*models.Ticket, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: ticket reference must not be empty", ErrInvalidInput)
	}
	ticket, err := s.DB.GetTicketByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, ticketdb.ErrNoTicket) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ticket, nil
}

// MarkUsed checks the ticket in and returns the updated record.
// Idempotent: a second call is a no-op transition that returns the
// already-used ticket without error.
func (s *TicketService) MarkUsed(ctx context.Context, ref string) (*models.Ticket, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: ticket reference must not be empty", ErrInvalidInput)
	}
	ticket, err := s.DB.MarkUsed(ctx, ref)
	if err != nil {
		if errors.Is(err, ticketdb.ErrNoTicket) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.logInfo("CHECKIN", fmt.Sprintf("ticket %s marked used", ref))
	s.publish(kafka.TopicTicketCheckedIn, *ticket)
	return ticket, nil
}

// Stats returns total and used counts; the unused count is derived.
func (s *TicketService) Stats(ctx context.Context) (*models.TicketStats, error) {
	total, used, err := s.DB.CountTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &models.TicketStats{
		TotalTickets:  total,
		UsedTickets:   used,
		UnusedTickets: total - used,
	}, nil
}

// ListByDateRange returns tickets created within the two calendar days
// inclusive. Bounds arrive as 2006-01-02 strings and are widened to the
// start and end of their day in the configured fixed offset before the
// store is queried in UTC.
func (s *TicketService) ListByDateRange(ctx context.Context, startDate, endDate string) ([]models.Ticket, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, s.DayOffset)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start date %q", ErrInvalidInput, startDate)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, s.DayOffset)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end date %q", ErrInvalidInput, endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)

	found, err := s.DB.GetTicketsByDateRange(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return found, nil
}

func (s *TicketService) publish(topic string, ticket models.Ticket) {
	if s.Publisher == nil {
		return
	}
	value, err := json.Marshal(kafka.TicketEvent{
		TicketRef: ticket.Reference(),
		StudentID: ticket.StudentID,
		IsUsed:    ticket.IsUsed,
		At:        time.Now().UTC(),
	})
	if err != nil {
		s.logWarn("KAFKA", fmt.Sprintf("marshal event for %s: %v", ticket.Reference(), err))
		return
	}
	if err := s.Publisher.Publish(topic, ticket.Reference(), value); err != nil {
		s.logWarn("KAFKA", fmt.Sprintf("publish %s for %s: %v", topic, ticket.Reference(), err))
	}
}

func validateRequest(req IssueRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if req.StudentID == "" {
		return fmt.Errorf("%w: student id must not be empty", ErrInvalidInput)
	}
	if !emailPattern.MatchString(req.Email) {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidInput, req.Email)
	}
	return nil
}
