package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradientlab/ticketflow-go/internal/application"
	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
	"github.com/gradientlab/ticketflow-go/pkg/response"
)

// TicketHandler handles ticket-related HTTP endpoints.
type TicketHandler struct {
	svc *application.TicketService
}

// NewTicketHandler creates a new ticket handler.
func NewTicketHandler(svc *application.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// CreateTicket handles ticket creation.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req ticket.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid payload: " + err.Error()})
		return
	}

	id, err := h.svc.CreateTicket(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, application.ErrEnqueueFailed) {
			// Persisted but not queued: the ticket exists yet will not be
			// processed automatically.
			c.JSON(http.StatusBadGateway, response.ErrorResponse{
				Error: "ticket " + id + " created but could not be queued for processing",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, ticket.CreateTicketResponse{ID: id})
}

// GetTicketStatus returns the status of the ticket given by ?id=.
func (h *TicketHandler) GetTicketStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "missing id parameter"})
		return
	}

	status, err := h.svc.GetTicketStatus(c.Request.Context(), id)
	if err != nil {
		h.renderLookupError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, ticket.StatusResponse{ID: id, Status: status})
}

// GetTicketData returns the full ticket given by ?id=. Tickets still in
// flight come back as 206 Partial Content with no answer.
func (h *TicketHandler) GetTicketData(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "missing id parameter"})
		return
	}

	t, err := h.svc.GetTicketData(c.Request.Context(), id)
	if err != nil {
		h.renderLookupError(c, id, err)
		return
	}

	code := http.StatusOK
	if !t.IsDone() {
		code = http.StatusPartialContent
	}
	c.JSON(code, ticket.DataResponse{
		ID:        t.ID,
		Question:  t.Question,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Answer:    t.Answer,
	})
}

func (h *TicketHandler) renderLookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, ticket.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: "ticket with ID " + id + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
}
