package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TTL is the wall-clock lifetime of a session, measured from creation.
// A session is expired strictly after the window, never at the boundary.
const TTL = 12 * time.Hour

var (
	// ErrNotFound indicates no session exists for the given address.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired indicates the session's age exceeds TTL.
	ErrExpired = errors.New("session: expired")
	// ErrConflict indicates the address is already taken.
	ErrConflict = errors.New("session: address already exists")

	errMissingDatabase = errors.New("database handle is required")

	noOpLogger = zap.NewNop()
)

const (
	opServiceNew = "session.service.new"
	opCreate     = "session.create"
	opResolve    = "session.resolve"
	opTouch      = "session.touch"
	opEnd        = "session.end"
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

// ServiceConfig describes the dependencies required by the session manager.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service creates, resolves, expires and ends anonymous sessions.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the session manager.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Create persists a new session for the given address. The salt is stored
// verbatim and never interpreted. Fails with ErrConflict when the address is
// already taken and ErrInvalidAddress when it is empty.
func (s *Service) Create(ctx context.Context, rawAddress, salt string) (Session, error) {
	address, err := NewAddress(rawAddress)
	if err != nil {
		return Session{}, err
	}

	now := s.clock().UTC()
	record := Session{
		Address:      address.String(),
		Salt:         salt,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Session{}, ErrConflict
		}
		s.logError(opCreate, "insert_failed", err, zap.String("address", address.String()))
		return Session{}, newServiceError(opCreate, "insert_failed", err)
	}
	return record, nil
}

// Resolve looks up a session by address and touches its last-accessed time
// in the same transaction as the read. Expiry is not enforced here; callers
// that need freshness use ResolveValid.
func (s *Service) Resolve(ctx context.Context, rawAddress string) (Session, error) {
	return s.resolve(ctx, rawAddress, false)
}

// ResolveValid behaves like Resolve but additionally rejects sessions older
// than TTL with ErrExpired before touching them.
func (s *Service) ResolveValid(ctx context.Context, rawAddress string) (Session, error) {
	return s.resolve(ctx, rawAddress, true)
}

func (s *Service) resolve(ctx context.Context, rawAddress string, enforceExpiry bool) (Session, error) {
	address, err := NewAddress(rawAddress)
	if err != nil {
		return Session{}, ErrNotFound
	}

	var record Session
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("address = ?", address.String()).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			s.logError(opResolve, "select_failed", err, zap.String("address", address.String()))
			return newServiceError(opResolve, "select_failed", err)
		}

		if enforceExpiry {
			if err := s.CheckValid(record); err != nil {
				return err
			}
		}

		record.LastAccessed = s.clock().UTC()
		if err := tx.Model(&Session{}).Where("id = ?", record.ID).
			Update("last_accessed", record.LastAccessed).Error; err != nil {
			s.logError(opTouch, "update_failed", err, zap.String("address", address.String()))
			return newServiceError(opTouch, "update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Session{}, txErr
	}
	return record, nil
}

// CheckValid reports ErrExpired when the session's age strictly exceeds TTL.
// Pure with respect to storage; it only consults the injected clock.
func (s *Service) CheckValid(record Session) error {
	if s.clock().UTC().Sub(record.CreatedAt) > TTL {
		return ErrExpired
	}
	return nil
}

// Touch persists a fresh last-accessed timestamp for the session.
func (s *Service) Touch(ctx context.Context, record *Session) error {
	record.LastAccessed = s.clock().UTC()
	if err := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", record.ID).
		Update("last_accessed", record.LastAccessed).Error; err != nil {
		s.logError(opTouch, "update_failed", err, zap.String("address", record.Address))
		return newServiceError(opTouch, "update_failed", err)
	}
	return nil
}

// End hard-deletes the session and cascades to all documents it owns, in one
// transaction. Fails with ErrNotFound when the address is unknown.
func (s *Service) End(ctx context.Context, rawAddress string) error {
	address, err := NewAddress(rawAddress)
	if err != nil {
		return ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Session
		err := tx.Where("address = ?", address.String()).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			s.logError(opEnd, "select_failed", err, zap.String("address", address.String()))
			return newServiceError(opEnd, "select_failed", err)
		}

		if err := tx.Exec("DELETE FROM documents WHERE session_id = ?", record.ID).Error; err != nil {
			s.logError(opEnd, "document_delete_failed", err, zap.String("address", address.String()))
			return newServiceError(opEnd, "document_delete_failed", err)
		}
		if err := tx.Delete(&Session{}, record.ID).Error; err != nil {
			s.logError(opEnd, "session_delete_failed", err, zap.String("address", address.String()))
			return newServiceError(opEnd, "session_delete_failed", err)
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
	s.logger.Error("session service error", attrs...)
}
