package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/securenotes/backend/internal/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PageSize is the fixed number of documents per listing page.
const PageSize = 10

// urlCollisionRetries bounds regeneration attempts when a freshly generated
// document URL collides with an existing row. With 256-bit tokens a single
// retry is already unreachable in practice.
const urlCollisionRetries = 3

var (
	// ErrNotFound indicates no document with that URL is visible to the
	// session. Existence under a different session is indistinguishable.
	ErrNotFound = errors.New("document: not found")
	// ErrInvalidInput indicates a missing or empty payload field.
	ErrInvalidInput = errors.New("document: invalid input")

	errMissingDatabase    = errors.New("database handle is required")
	errMissingURLProvider = errors.New("url provider is required")

	noOpLogger = zap.NewNop()
)

const (
	opServiceNew = "document.service.new"
	opList       = "document.list"
	opCreate     = "document.create"
	opGet        = "document.get"
	opUpdate     = "document.update"
	opDelete     = "document.delete"
)

// ServiceError carries a dotted operation.reason code alongside its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig describes the dependencies required by the document store.
type ServiceConfig struct {
	Database    *gorm.DB
	Clock       func() time.Time
	URLProvider URLProvider
	Logger      *zap.Logger
}

// Service stores and retrieves encrypted documents, always scoped to a
// resolved owning session.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	urls   URLProvider
	logger *zap.Logger
}

// NewService constructs the document store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.URLProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_url_provider", errMissingURLProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, urls: cfg.URLProvider, logger: logger}, nil
}

// List returns one page of the session's documents ordered by last_modified
// descending. Pages are 1-indexed; a page below 1 is treated as 1 and a page
// past the end yields an empty slice, not an error.
func (s *Service) List(ctx context.Context, owner session.Session, page int) (Page, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Document{}).
		Where("session_id = ?", owner.ID).
		Count(&total).Error; err != nil {
		s.logError(opList, "count_failed", err, zap.Uint("session_id", owner.ID))
		return Page{}, newServiceError(opList, "count_failed", err)
	}

	var items []Document
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", owner.ID).
		Order("last_modified DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&items).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.Uint("session_id", owner.ID))
		return Page{}, newServiceError(opList, "query_failed", err)
	}

	pages := int((total + PageSize - 1) / PageSize)
	return Page{Items: items, Total: total, Pages: pages, CurrentPage: page}, nil
}

// Create persists a new document under the session, generating a fresh
// globally unique URL. Generation is retried when the token collides with an
// existing row instead of failing the request.
func (s *Service) Create(ctx context.Context, owner session.Session, encryptedContent, encryptedTitle string) (Document, error) {
	if strings.TrimSpace(encryptedContent) == "" || strings.TrimSpace(encryptedTitle) == "" {
		return Document{}, ErrInvalidInput
	}

	now := s.clock().UTC()
	record := Document{
		EncryptedContent: encryptedContent,
		EncryptedTitle:   encryptedTitle,
		CreatedAt:        now,
		LastModified:     now,
		SessionID:        owner.ID,
	}

	for attempt := 0; ; attempt++ {
		url, err := s.urls.NewURL()
		if err != nil {
			s.logError(opCreate, "url_generation_failed", err, zap.Uint("session_id", owner.ID))
			return Document{}, newServiceError(opCreate, "url_generation_failed", err)
		}
		record.DocumentURL = url

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&record).Error
		})
		if err == nil {
			return record, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < urlCollisionRetries {
			record.ID = 0
			continue
		}
		s.logError(opCreate, "insert_failed", err, zap.Uint("session_id", owner.ID))
		return Document{}, newServiceError(opCreate, "insert_failed", err)
	}
}

// Get fetches one document by URL, scoped to the owning session.
func (s *Service) Get(ctx context.Context, owner session.Session, documentURL string) (Document, error) {
	var record Document
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND document_url = ?", owner.ID, documentURL).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		s.logError(opGet, "select_failed", err, zap.Uint("session_id", owner.ID))
		return Document{}, newServiceError(opGet, "select_failed", err)
	}
	return record, nil
}

// Update applies the fields present in the patch, advances last_modified and
// leaves created_at untouched. Same scoping rule as Get.
func (s *Service) Update(ctx context.Context, owner session.Session, documentURL string, patch Patch) (Document, error) {
	if patch.Empty() {
		return Document{}, ErrInvalidInput
	}

	var record Document
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("session_id = ? AND document_url = ?", owner.ID, documentURL).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			s.logError(opUpdate, "select_failed", err, zap.Uint("session_id", owner.ID))
			return newServiceError(opUpdate, "select_failed", err)
		}

		if patch.EncryptedContent != nil {
			record.EncryptedContent = *patch.EncryptedContent
		}
		if patch.EncryptedTitle != nil {
			record.EncryptedTitle = *patch.EncryptedTitle
		}
		record.LastModified = s.clock().UTC()

		if err := tx.Model(&Document{}).Where("id = ?", record.ID).Updates(map[string]any{
			"encrypted_content": record.EncryptedContent,
			"encrypted_title":   record.EncryptedTitle,
			"last_modified":     record.LastModified,
		}).Error; err != nil {
			s.logError(opUpdate, "update_failed", err, zap.Uint("session_id", owner.ID))
			return newServiceError(opUpdate, "update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Document{}, txErr
	}
	return record, nil
}

// Delete hard-deletes one document by URL. Same scoping rule as Get; deleting
// an absent document reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, owner session.Session, documentURL string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("session_id = ? AND document_url = ?", owner.ID, documentURL).
			Delete(&Document{})
		if result.Error != nil {
			s.logError(opDelete, "delete_failed", result.Error, zap.Uint("session_id", owner.ID))
			return newServiceError(opDelete, "delete_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("document service error", attrs...)
}
