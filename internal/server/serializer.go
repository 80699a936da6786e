package server

import (
	"encoding/json"
	"time"

	"github.com/securenotes/backend/internal/document"
	"github.com/securenotes/backend/internal/session"
)

// Wire payloads mirror the original API: camelCase fields, the opaque
// address / document URL exposed as "id", timestamps as ISO-8601 UTC.

type sessionPayload struct {
	ID           string `json:"id"`
	Salt         string `json:"salt,omitempty"`
	CreatedAt    string `json:"createdAt"`
	LastAccessed string `json:"lastAccessed"`
}

func newSessionPayload(record session.Session) sessionPayload {
	return sessionPayload{
		ID:           record.Address,
		Salt:         record.Salt,
		CreatedAt:    isoTime(record.CreatedAt),
		LastAccessed: isoTime(record.LastAccessed),
	}
}

type documentPayload struct {
	ID               string          `json:"id"`
	EncryptedContent json.RawMessage `json:"encryptedContent"`
	EncryptedTitle   json.RawMessage `json:"encryptedTitle"`
	SessionID        string          `json:"sessionId"`
	CreatedAt        string          `json:"createdAt"`
	LastModified     string          `json:"lastModified"`
}

func newDocumentPayload(record document.Document, address string) documentPayload {
	return documentPayload{
		ID:               record.DocumentURL,
		EncryptedContent: json.RawMessage(record.EncryptedContent),
		EncryptedTitle:   json.RawMessage(record.EncryptedTitle),
		SessionID:        address,
		CreatedAt:        isoTime(record.CreatedAt),
		LastModified:     isoTime(record.LastModified),
	}
}

type documentListPayload struct {
	Documents   []documentPayload `json:"documents"`
	Total       int64             `json:"total"`
	Pages       int               `json:"pages"`
	CurrentPage int               `json:"currentPage"`
}

func newDocumentListPayload(page document.Page, address string) documentListPayload {
	payload := documentListPayload{
		Documents:   make([]documentPayload, 0, len(page.Items)),
		Total:       page.Total,
		Pages:       page.Pages,
		CurrentPage: page.CurrentPage,
	}
	for _, item := range page.Items {
		payload.Documents = append(payload.Documents, newDocumentPayload(item, address))
	}
	return payload
}

func isoTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}
