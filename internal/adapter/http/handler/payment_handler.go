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

// HeaderIdempotencyKey makes a transfer safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler handles wallet endpoints.
type PaymentHandler struct {
	walletSvc ports.WalletService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(walletSvc ports.WalletService) *PaymentHandler {
	return &PaymentHandler{walletSvc: walletSvc}
}

// Users handles GET /api/v1/payments/users: every other user, as recipients.
func (h *PaymentHandler) Users(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	users, err := h.walletSvc.Recipients(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	response.OK(c, out)
}

// Send handles POST /api/v1/payments/send.
func (h *PaymentHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	in := ports.TransferRequest{
		SenderID:       userID,
		Amount:         req.Amount,
		Note:           req.Note,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	}
	if req.ReceiverID != nil && *req.ReceiverID != "" {
		id, err := uuid.Parse(*req.ReceiverID)
		if err != nil {
			response.Error(c, apperror.ErrInvalidRequest("invalid receiver_id"))
			return
		}
		in.ReceiverID = &id
	}

	result, err := h.walletSvc.Transfer(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		Payment:    toPaymentResponse(&result.Payment),
		NewBalance: result.NewBalance,
	})
}

// History handles GET /api/v1/payments/history.
func (h *PaymentHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	records, err := h.walletSvc.History(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.PaymentHistoryItem, 0, len(records))
	for i := range records {
		r := &records[i]
		out = append(out, dto.PaymentHistoryItem{
			PaymentResponse: toPaymentResponse(&r.Payment),
			Direction:       r.Direction(userID),
			Sender:          toPaymentParty(r.Sender),
			Receiver:        toPaymentParty(r.Receiver),
		})
	}
	response.OK(c, out)
}

// AddMoney handles POST /api/v1/payments/add-money.
func (h *PaymentHandler) AddMoney(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest(err.Error()))
		return
	}

	balance, err := h.walletSvc.Topup(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.TopupResponse{Message: "Money added successfully", NewBalance: balance})
}

// Balance handles GET /api/v1/payments/balance.
func (h *PaymentHandler) Balance(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	balance, err := h.walletSvc.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{Balance: balance})
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:         p.ID.String(),
		SenderID:   p.SenderID.String(),
		ReceiverID: p.ReceiverID.String(),
		Amount:     p.Amount,
		Status:     string(p.Status),
		Note:       p.Note,
		Date:       p.Date.Format(time.RFC3339),
	}
}

func toPaymentParty(p domain.PaymentParty) dto.PaymentParty {
	return dto.PaymentParty{
		ID:    p.ID.String(),
		Name:  p.Name,
		Email: p.Email,
		Phone: p.Phone,
	}
}
