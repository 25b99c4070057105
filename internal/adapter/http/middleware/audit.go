package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// Actions are mapped from the matched route template, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var userID *uuid.UUID
		if id, ok := UserID(c); ok {
			userID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(response.RequestIDKey),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch method + " " + route {
	case "POST /api/v1/auth/register":
		return domain.AuditActionRegister, "user"
	case "POST /api/v1/auth/login":
		return domain.AuditActionLogin, "session"
	case "POST /api/v1/customers":
		return domain.AuditActionCreateCustomer, "customer"
	case "PUT /api/v1/customers/:id":
		return domain.AuditActionUpdateCustomer, "customer"
	case "DELETE /api/v1/customers/:id":
		return domain.AuditActionDeleteCustomer, "customer"
	case "POST /api/v1/customers/backfill":
		return domain.AuditActionBackfill, "customer"
	case "POST /api/v1/transactions":
		return domain.AuditActionCreateTransaction, "transaction"
	case "PUT /api/v1/transactions/:id":
		return domain.AuditActionUpdateTransaction, "transaction"
	case "DELETE /api/v1/transactions/:id":
		return domain.AuditActionDeleteTransaction, "transaction"
	case "POST /api/v1/payments/send":
		return domain.AuditActionTransfer, "payment"
	case "POST /api/v1/payments/add-money":
		return domain.AuditActionTopup, "wallet"
	}
	return "", ""
}
