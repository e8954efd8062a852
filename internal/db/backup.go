package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// BackupName is the dated file name of a daily copy.
func BackupName(now time.Time) string {
	return fmt.Sprintf("dance_school%s.db", now.Format("2006-01-02"))
}

// Backup writes a consistent copy of the live database into dir. A second
// backup on the same day replaces the first.
func Backup(gdb *gorm.DB, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "backup dir")
	}
	dst := filepath.Join(dir, BackupName(now))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return "", errors.Wrap(err, "replace old backup")
	}
	// VACUUM INTO copies through SQLite itself, so WAL content is included.
	if err := gdb.Exec("VACUUM INTO ?", dst).Error; err != nil {
		return "", errors.Wrap(err, "vacuum into")
	}
	return dst, nil
}
