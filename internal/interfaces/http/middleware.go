package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/draftflow/internal/application/service"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

// Caller headers. Identity is established upstream of this service.
const (
	HeaderUserID      = "X-User-ID"
	HeaderOrgCode     = "X-Org-Code"
	HeaderAuditAccess = "X-Audit-Access"

	callerKey = "caller"
)

// Error codes carried in the response envelope
const (
	CodeWorkflowViolation      = "workflow.violation"
	CodeConcurrentModification = "workflow.concurrent_modification"
	CodeAccessDenied           = "access.denied"
	CodeNotFound               = "resource.not_found"
	CodeInvalidRequest         = "request.invalid"
	CodeInternal               = "internal.error"
)

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"user_id", c.GetHeader(HeaderUserID),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	allowHeaders := strings.Join([]string{"Content-Type", "Authorization", HeaderUserID, HeaderOrgCode, HeaderAuditAccess}, ", ")
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// callerMiddleware reads the caller context from request headers
func callerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := service.Caller{
			UserID:           strings.TrimSpace(c.GetHeader(HeaderUserID)),
			OrganizationCode: strings.TrimSpace(c.GetHeader(HeaderOrgCode)),
		}
		if raw := strings.TrimSpace(c.GetHeader(HeaderAuditAccess)); raw != "" {
			audit, err := strconv.ParseBool(raw)
			if err != nil {
				_ = c.Error(fmt.Errorf("%w: %s must be a boolean", draft.ErrInvalidArgument, HeaderAuditAccess))
				c.Abort()
				return
			}
			caller.AuditAccess = audit
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) service.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(service.Caller); ok {
			return caller
		}
	}
	return service.Caller{}
}

// errorMiddleware turns the last handler error into the response envelope
func errorMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		status, code, message := classifyError(last)
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", last.Err,
			)
		}
		c.JSON(status, Response{
			Success: false,
			Error:   message,
			Code:    code,
		})
	}
}

func classifyError(e *gin.Error) (int, string, string) {
	err := e.Err

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, CodeInvalidRequest, validationMessage(verrs)
	}
	if e.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, CodeInvalidRequest, err.Error()
	}

	switch {
	case errors.Is(err, draft.ErrWorkflowViolation):
		return http.StatusConflict, CodeWorkflowViolation, err.Error()
	case errors.Is(err, draft.ErrConcurrentModification):
		return http.StatusConflict, CodeConcurrentModification, err.Error()
	case errors.Is(err, draft.ErrAccessDenied):
		return http.StatusForbidden, CodeAccessDenied, err.Error()
	case errors.Is(err, draft.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, draft.ErrInvalidArgument):
		return http.StatusBadRequest, CodeInvalidRequest, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
