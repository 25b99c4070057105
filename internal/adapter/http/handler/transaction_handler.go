package handler

import (
	"time"

	"ledgerbook/internal/adapter/http/dto"
	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"
	"ledgerbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles ledger transaction endpoints.
type TransactionHandler struct {
	ledgerSvc ports.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerSvc ports.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerSvc: ledgerSvc}
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := rangeFilter(c)
	if !ok {
		return
	}

	txns, err := h.ledgerSvc.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txns)
}

// Create handles POST /api/v1/transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	in := ports.CreateTransactionRequest{
		UserID:   userID,
		Customer: domain.CustomerRef{Name: req.CustomerName},
		Amount:   req.Amount,
		Type:     toTransactionType(req.Type),
		Note:     req.Note,
		Date:     toTime(req.Date),
	}
	if req.CustomerID != nil && *req.CustomerID != "" {
		id, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			response.Error(c, apperror.ErrInvalidCustomer())
			return
		}
		in.Customer.ID = &id
	}

	txn, err := h.ledgerSvc.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, txn)
}

// Update handles PUT /api/v1/transactions/:id. Absent fields are kept.
func (h *TransactionHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transaction")
	if !ok {
		return
	}

	var req dto.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.ledgerSvc.Update(c.Request.Context(), userID, id, domain.TransactionPatch{
		Amount: req.Amount,
		Type:   toTransactionType(req.Type),
		Note:   req.Note,
		Date:   toTime(req.Date),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txn)
}

// Delete handles DELETE /api/v1/transactions/:id.
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transaction")
	if !ok {
		return
	}

	if err := h.ledgerSvc.Delete(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MessageResponse{Message: "Transaction deleted"})
}

// Summary handles GET /api/v1/transactions/summary.
func (h *TransactionHandler) Summary(c *gin.Context) {
	filter, ok := rangeFilter(c)
	if !ok {
		return
	}

	summary, err := h.ledgerSvc.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// MonthlySummary handles GET /api/v1/transactions/monthly-summary.
func (h *TransactionHandler) MonthlySummary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	summary, err := h.ledgerSvc.MonthlySummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// CustomerView handles GET /api/v1/transactions/customer/:customerName.
func (h *TransactionHandler) CustomerView(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.ledgerSvc.CustomerView(c.Request.Context(), userID, c.Param("customerName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

func rangeFilter(c *gin.Context) (domain.TransactionFilter, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return domain.TransactionFilter{}, false
	}

	var q dto.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return domain.TransactionFilter{}, false
	}
	from, to, err := q.Range()
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return domain.TransactionFilter{}, false
	}
	return domain.TransactionFilter{UserID: userID, From: from, To: to}, true
}

func toTransactionType(s *string) *domain.TransactionType {
	if s == nil {
		return nil
	}
	t := domain.TransactionType(*s)
	return &t
}

func toTime(d *dto.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
