package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Status    int            `json:"status"`
	Path      string         `json:"path"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	message := "internal error"
	var details map[string]any

	switch {
	case errors.Is(err, domain.ErrInvalidTenant):
		status, code, message = http.StatusBadRequest, "INVALID_TENANT_SCHEMA", err.Error()
	case errors.Is(err, domain.ErrTenantNotResolved):
		status, code, message = http.StatusInternalServerError, "TENANT_NOT_RESOLVED", "tenant not resolved for this request"
	case errors.Is(err, domain.ErrSchemaNotFound):
		status, code, message = http.StatusNotFound, "SCHEMA_NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrAuthenticationRequired):
		status, code, message = http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "authentication required"
	case errors.Is(err, domain.ErrPermissionDenied):
		status, code, message = http.StatusForbidden, "PERMISSION_DENIED", "permission denied"
		if denied, ok := domain.IsPermissionDenied(err); ok {
			message = denied.Error()
			details = map[string]any{
				"groups":   denied.Groups,
				"operator": denied.Operator,
			}
		}
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrConflict):
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, domain.ErrDBUnavailable):
		status, code, message = http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database unavailable"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", code),
			zap.Error(err))
	}
	s.writeErrorCode(c, status, code, message, details)
}

func (s *Server) writeErrorCode(c *gin.Context, status int, code, message string, details map[string]any) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:      code,
		Message:   message,
		Status:    status,
		Path:      c.Request.URL.Path,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Details:   details,
	})
}
