package document

import "time"

// Document models one stored encrypted note. Content and title are opaque
// serialized blobs round-tripped verbatim; the server never inspects them.
type Document struct {
	ID               uint      `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentURL      string    `gorm:"column:document_url;size:190;not null;uniqueIndex"`
	EncryptedContent string    `gorm:"column:encrypted_content;type:text;not null"`
	EncryptedTitle   string    `gorm:"column:encrypted_title;type:text;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	LastModified     time.Time `gorm:"column:last_modified;not null;index:idx_documents_session_modified,priority:2"`
	SessionID        uint      `gorm:"column:session_id;not null;index:idx_documents_session_modified,priority:1"`
}

// TableName provides the explicit table binding for GORM.
func (Document) TableName() string {
	return "documents"
}

// Patch carries the optional fields of a partial update. A nil field leaves
// the stored value untouched; a patch with both fields nil is invalid input.
type Patch struct {
	EncryptedContent *string
	EncryptedTitle   *string
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.EncryptedContent == nil && p.EncryptedTitle == nil
}

// Page is one slice of a session's document collection. Total and Pages
// always describe the full scoped set regardless of the requested page.
type Page struct {
	Items       []Document
	Total       int64
	Pages       int
	CurrentPage int
}
