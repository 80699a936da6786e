package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/securenotes/backend/internal/document"
)

type documentRequestPayload struct {
	EncryptedContent json.RawMessage `json:"encryptedContent"`
	EncryptedTitle   json.RawMessage `json:"encryptedTitle"`
}

// blobString extracts an opaque blob from the request. The blob may be any
// JSON value; it is kept as its serialized form and never interpreted.
func blobString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	return string(trimmed), true
}

func (h *httpHandler) handleListDocuments(c *gin.Context) {
	owner, err := h.sessions.ResolveValid(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}

	listing, err := h.documents.List(c.Request.Context(), owner, page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newDocumentListPayload(listing, owner.Address)})
}

func (h *httpHandler) handleCreateDocument(c *gin.Context) {
	owner, err := h.sessions.Resolve(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var request documentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	content, ok := blobString(request.EncryptedContent)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	title, ok := blobString(request.EncryptedTitle)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	record, err := h.documents.Create(c.Request.Context(), owner, content, title)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newDocumentPayload(record, owner.Address)})
}

func (h *httpHandler) handleGetDocument(c *gin.Context) {
	owner, err := h.sessions.Resolve(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	record, err := h.documents.Get(c.Request.Context(), owner, c.Param("url"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newDocumentPayload(record, owner.Address)})
}

func (h *httpHandler) handleUpdateDocument(c *gin.Context) {
	owner, err := h.sessions.Resolve(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var request documentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	var patch document.Patch
	if content, ok := blobString(request.EncryptedContent); ok {
		patch.EncryptedContent = &content
	}
	if title, ok := blobString(request.EncryptedTitle); ok {
		patch.EncryptedTitle = &title
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	record, err := h.documents.Update(c.Request.Context(), owner, c.Param("url"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newDocumentPayload(record, owner.Address)})
}

func (h *httpHandler) handleDeleteDocument(c *gin.Context) {
	owner, err := h.sessions.Resolve(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.documents.Delete(c.Request.Context(), owner, c.Param("url")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Document deleted successfully"}})
}
