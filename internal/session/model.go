package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxAddressLength = 190

// ErrInvalidAddress indicates that a session address is empty or exceeds storage bounds.
var ErrInvalidAddress = errors.New("session: invalid address")

// Address represents a validated session address, the sole credential a client holds.
type Address string

// NewAddress validates raw input and returns an Address.
func NewAddress(rawInput string) (Address, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if len(trimmed) > maxAddressLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidAddress, maxAddressLength)
	}
	return Address(trimmed), nil
}

// String returns the underlying address string.
func (a Address) String() string {
	return string(a)
}

// Session models one anonymous session row. The address is the only external
// identifier; the numeric id exists for foreign-key scoping of documents.
type Session struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Address      string    `gorm:"column:address;size:190;not null;uniqueIndex"`
	Salt         string    `gorm:"column:salt;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	LastAccessed time.Time `gorm:"column:last_accessed;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "sessions"
}
