package persistence

import (
	"errors"
	"strings"

	"github.com/billforge/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// isDuplicateKey reports whether err is a unique constraint violation.
// Databases opened with TranslateError surface gorm.ErrDuplicatedKey; the
// message checks cover drivers that do not translate.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// notFoundOr maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
