package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securenotes/backend/internal/document"
	"github.com/securenotes/backend/internal/session"
	"go.uber.org/zap"
)

// errorStatus maps service error kinds onto HTTP responses. Expiry and
// cross-session access report the same generic messages as plain absence so
// that callers cannot confirm the existence of resources they do not own.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidAddress):
		return http.StatusBadRequest, "Address is required"
	case errors.Is(err, session.ErrConflict):
		return http.StatusConflict, "Session address already exists"
	case errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized, "Session expired"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, document.ErrInvalidInput):
		return http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound, "Document not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}
