package ticket_api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"

	"workshop-tickets/internal/export"
	"workshop-tickets/internal/logger"
	tickets "workshop-tickets/internal/tickets/service"
	"workshop-tickets/internal/utils"
)

const statsCacheKey = "ticket_stats"
const statsCacheTTL = 10 * time.Second

type Handler struct {
	TicketService *tickets.TicketService
	Logger        logger.Log
	// RedisClient caches the stats aggregate; nil disables caching.
	RedisClient *redis.Client
}

func NewHandler(service *tickets.TicketService, log logger.Log, redisClient *redis.Client) *Handler {
	return &Handler{TicketService: service, Logger: log, RedisClient: redisClient}
}

type sendTicketRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"studentId"`
	Amount    int    `json:"amount"`
}

type batchFailure struct {
	Row   int    `json:"row"`
	Email string `json:"email"`
	Error string `json:"error"`
}

type batchSummary struct {
	Attempted int            `json:"attempted"`
	Issued    int            `json:"issued"`
	Failed    []batchFailure `json:"failed"`
}

// SendTicket issues one or more tickets to a single attendee. Each
// ticket is an independent issuance with its own email.
func (h *Handler) SendTicket(w http.ResponseWriter, r *http.Request) {
	var req sendTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}
	if req.Amount < 1 || req.Amount > 50 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "amount must be between 1 and 50"))
		return
	}

	issue := tickets.IssueRequest{Name: req.Name, Email: req.Email, StudentID: req.StudentID}

	if req.Amount == 1 {
		ticket, err := h.TicketService.IssueSingle(r.Context(), issue)
		if err != nil {
			h.Logger.Error("TICKETS", fmt.Sprintf("issuance for %s failed: %v", req.Email, err))
			utils.WriteJSON(w, statusFromError(err), utils.ErrorResponse("Failed to send ticket", err.Error()))
			return
		}
		h.invalidateStatsCache(r)
		utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Email sent", ticket))
		return
	}

	reqs := make([]tickets.IssueRequest, req.Amount)
	for i := range reqs {
		reqs[i] = issue
	}
	summary := summarize(h.TicketService.IssueBatch(r.Context(), reqs))
	h.invalidateStatsCache(r)

	status := http.StatusCreated
	if summary.Issued == 0 {
		status = http.StatusBadGateway
	}
	utils.WriteJSON(w, status, utils.SuccessResponse("Batch processed", summary))
}

// SendTicketBatch issues tickets for every row of an uploaded CSV file
// (name,email,studentId). One bad row never stops the rest.
func (h *Handler) SendTicketBatch(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Missing CSV upload", err.Error()))
		return
	}
	defer file.Close()

	reqs, err := parseCSV(file)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Malformed CSV", err.Error()))
		return
	}
	if len(reqs) == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Empty CSV", "no records found"))
		return
	}

	h.Logger.Info("TICKETS", fmt.Sprintf("bulk issuance of %d records started", len(reqs)))
	summary := summarize(h.TicketService.IssueBatch(r.Context(), reqs))
	h.invalidateStatsCache(r)
	h.Logger.Info("TICKETS", fmt.Sprintf("bulk issuance finished: %d/%d issued", summary.Issued, summary.Attempted))

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Batch processed", summary))
}

func (h *Handler) SearchTickets(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	found, err := h.TicketService.FindByStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("No tickets found for this student ID.", ""))
			return
		}
		utils.WriteJSON(w, statusFromError(err), utils.ErrorResponse("Search failed", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(found)
}

func (h *Handler) TicketInfo(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ticketRef")
	ticket, err := h.TicketService.FindByReference(r.Context(), ref)
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
			return
		}
		utils.WriteJSON(w, statusFromError(err), utils.ErrorResponse("Lookup failed", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticket)
}

// UseTicket checks a ticket in. Re-using an already-used ticket is not
// an error; the response carries the record either way.
func (h *Handler) UseTicket(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ticketRef")
	ticket, err := h.TicketService.MarkUsed(r.Context(), ref)
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
			return
		}
		utils.WriteJSON(w, statusFromError(err), utils.ErrorResponse("Check-in failed", err.Error()))
		return
	}
	h.invalidateStatsCache(r)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticket)
}

func (h *Handler) TicketStats(w http.ResponseWriter, r *http.Request) {
	if h.RedisClient != nil {
		if cached, err := h.RedisClient.Get(r.Context(), statsCacheKey).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		}
	}

	stats, err := h.TicketService.Stats(r.Context())
	if err != nil {
		utils.WriteJSON(w, statusFromError(err), utils.ErrorResponse("Stats failed", err.Error()))
		return
	}

	payload, _ := json.Marshal(stats)
	if h.RedisClient != nil {
		if err := h.RedisClient.Set(r.Context(), statsCacheKey, payload, statsCacheTTL).Err(); err != nil {
			h.Logger.Warn("REDIS", fmt.Sprintf("stats cache write failed: %v", err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// ExportTickets streams an xlsx workbook of tickets sold in the
// requested date range (inclusive, day-normalized).
func (h *Handler) ExportTickets(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("startDate")
	endDate := r.URL.Query().Get("endDate")
	if startDate == "" || endDate == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "startDate and endDate are required"))
		return
	}

	found, err := h.TicketService.ListByDateRange(r.Context(), startDate, endDate)
	if err != nil {
		utils.WriteJSON(w, statusFromError(err), utils.ErrorResponse("Export failed", err.Error()))
		return
	}

	workbook, err := export.BuildWorkbook(found, h.TicketService.DayOffset)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Export failed", err.Error()))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(time.Now())))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteWorkbook(workbook, w); err != nil {
		h.Logger.Error("EXPORT", fmt.Sprintf("workbook write failed: %v", err))
	}
}

func (h *Handler) invalidateStatsCache(r *http.Request) {
	if h.RedisClient == nil {
		return
	}
	if err := h.RedisClient.Del(r.Context(), statsCacheKey).Err(); err != nil {
		h.Logger.Warn("REDIS", fmt.Sprintf("stats cache invalidation failed: %v", err))
	}
}

func summarize(results []tickets.BatchResult) batchSummary {
	summary := batchSummary{Attempted: len(results), Failed: []batchFailure{}}
	for i, res := range results {
		if res.Err != nil {
			summary.Failed = append(summary.Failed, batchFailure{
				Row:   i + 1,
				Email: res.Request.Email,
				Error: res.Err.Error(),
			})
			continue
		}
		summary.Issued++
	}
	return summary
}

func parseCSV(r io.Reader) ([]tickets.IssueRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var reqs []tickets.IssueRequest
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("row %d: expected name,email,studentId", len(reqs)+1)
		}
		// Tolerate an exported header row.
		if strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}
		reqs = append(reqs, tickets.IssueRequest{
			Name:      strings.TrimSpace(record[0]),
			Email:     strings.TrimSpace(record[1]),
			StudentID: strings.TrimSpace(record[2]),
		})
	}
	return reqs, nil
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, tickets.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, tickets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tickets.ErrPoolExhausted):
		return http.StatusConflict
	case errors.Is(err, tickets.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, tickets.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
