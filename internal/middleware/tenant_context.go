package middleware

import (
	"net/http"

	"orvit-payroll/internal/shared/apperror"
	"orvit-payroll/internal/shared/contextutil"
	"orvit-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantContext resolves the acting tenant and user from the gateway headers.
// Authentication happens upstream; this service only trusts and validates the
// identifiers it is handed.
func TenantContext(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.GetHeader("X-Company-ID")
		if _, err := uuid.Parse(companyID); err != nil {
			response.Error(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "missing or invalid company id", nil)
			c.Abort()
			return
		}

		userID := c.GetHeader("X-User-ID")
		if _, err := uuid.Parse(userID); err != nil {
			response.Error(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "missing or invalid user id", nil)
			c.Abort()
			return
		}

		c.Set("company_id", companyID)
		c.Set("user_id", userID)

		reqLogger := logger.With(
			zap.String("request_id", c.GetString("request_id")),
			zap.String("company_id", companyID),
			zap.String("user_id", userID),
		)

		ctx := c.Request.Context()
		ctx = contextutil.WithUserID(ctx, userID)
		ctx = contextutil.WithLogger(ctx, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
