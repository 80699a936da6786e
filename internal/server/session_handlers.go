package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createSessionPayload struct {
	Address string `json:"address"`
	Salt    string `json:"salt"`
}

func (h *httpHandler) handleCreateSession(c *gin.Context) {
	var request createSessionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Address is required"})
		return
	}

	record, err := h.sessions.Create(c.Request.Context(), request.Address, request.Salt)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newSessionPayload(record)})
}

func (h *httpHandler) handleValidateSession(c *gin.Context) {
	record, err := h.sessions.ResolveValid(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newSessionPayload(record)})
}

func (h *httpHandler) handleEndSession(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), c.Param("address")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Session ended successfully"}})
}
