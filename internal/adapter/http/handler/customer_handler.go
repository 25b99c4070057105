package handler

import (
	"ledgerbook/internal/adapter/http/dto"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"
	"ledgerbook/pkg/response"

	"github.com/gin-gonic/gin"
)

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	customerSvc ports.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerSvc ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerSvc: customerSvc}
}

// List handles GET /api/v1/customers.
func (h *CustomerHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	customers, err := h.customerSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, customers)
}

// Create handles POST /api/v1/customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	customer, err := h.customerSvc.Create(c.Request.Context(), userID, req.Name, req.Phone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, customer)
}

// Update handles PUT /api/v1/customers/:id.
func (h *CustomerHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "customer")
	if !ok {
		return
	}

	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	customer, err := h.customerSvc.Update(c.Request.Context(), userID, id, ports.CustomerUpdate{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, customer)
}

// Delete handles DELETE /api/v1/customers/:id.
func (h *CustomerHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "customer")
	if !ok {
		return
	}

	if err := h.customerSvc.Delete(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MessageResponse{Message: "Customer deleted"})
}

// Backfill handles POST /api/v1/customers/backfill. It links the caller's
// orphaned transactions to customer records and recomputes balances.
func (h *CustomerHandler) Backfill(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	report, err := h.customerSvc.Backfill(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
