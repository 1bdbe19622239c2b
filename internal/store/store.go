// Package store implements all persistence for Foreman entities. The request
// table doubles as the work queue: there is no separate queue structure, and
// ClaimNext is the only admission path into processing.
package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors callers are expected to branch on.
var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateName indicates a project name collision.
	ErrDuplicateName = errors.New("store: project name already exists")

	// ErrNoPending indicates no request is eligible for dispatch.
	ErrNoPending = errors.New("store: no pending requests")
)

// isUniqueViolation detects a uniqueness constraint failure across the
// supported engines (SQLite and MySQL report these differently).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
