package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/api/dto"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/service"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

// TicketsHandler manages reimbursement ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Submit POST /tickets.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SubmitTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}

	ticket, err := h.service.Submit(c.UserContext(), service.TicketDraft{
		Amount:      *req.Amount,
		Description: req.Description,
		Type:        req.Type,
		ReceiptRefs: req.ReceiptRefs,
	}, identity.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /tickets/history?type=.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var ticketType *domain.TicketType
	if raw := c.Query("type"); raw != "" {
		t := domain.TicketType(raw)
		ticketType = &t
	}
	tickets, err := h.service.ListForOwner(c.UserContext(), identity.UserID, ticketType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// Pending GET /tickets/pending.
func (h *TicketsHandler) Pending(c *fiber.Ctx) error {
	tickets, err := h.service.ListPending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Process PATCH /tickets/:id.
func (h *TicketsHandler) Process(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ProcessTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}
	ticket, err := h.service.Process(c.UserContext(), c.Params("id"), identity.UserID, req.Action)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AttachReceipt POST /tickets/:id/receipts.
func (h *TicketsHandler) AttachReceipt(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	file, closeFile, err := formFile(c)
	if err != nil {
		return err
	}
	defer closeFile()

	ticket, err := h.service.AttachReceipt(c.UserContext(), identity.UserID, c.Params("id"), file)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
