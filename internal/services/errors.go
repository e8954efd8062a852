package services

import (
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lojf/dancestudio/internal/schedule"
)

// Expected, recoverable conditions. Callers compare with errors.Is.
var (
	ErrDuplicateInstance = errors.New("class slot already exists")
	ErrStoreBusy         = errors.New("database is busy")
	ErrNotFound          = errors.New("not found")
	ErrMalformedDate     = schedule.ErrMalformedDate
	ErrArchiveInstance   = errors.New("archive instance cannot be changed")
)

// classify maps driver errors onto the taxonomy and adds context.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(ErrNotFound, msg)
	case isBusy(err):
		return errors.Wrap(ErrStoreBusy, msg)
	case isUnique(err):
		return errors.Wrap(ErrDuplicateInstance, msg)
	}
	return errors.Wrap(err, msg)
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}

func isUnique(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
