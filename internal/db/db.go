package db

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lojf/dancestudio/internal/models"
)

var (
	conn *gorm.DB
	path string
)

// Options tune Open. The zero value is quiet and uses defaults.
type Options struct {
	Debug bool
}

// Open opens (and migrates) the studio database at file.
func Open(file string, opts Options) (*gorm.DB, error) {
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	gl := logger.New(log.New(os.Stderr, "", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})

	gdb, err := gorm.Open(sqlite.Open(file+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger: gl,
	})
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates the tables and the indexes gorm tags don't cover.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.ClassInstance{},
		&models.Student{},
		&models.AttendanceMark{},
		&models.LedgerRow{},
		&models.CashBox{},
		&models.ClassOrder{},
	); err != nil {
		return err
	}
	return gdb.Exec("CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance_marks(student_id, date)").Error
}

// Init opens the process-wide connection.
func Init(file string, opts Options) error {
	gdb, err := Open(file, opts)
	if err != nil {
		return err
	}
	conn, path = gdb, file
	log.Printf("database ready (sqlite %s)", file)
	return nil
}

func Conn() *gorm.DB {
	return conn
}

// Path is the file behind Conn, for backups.
func Path() string {
	return path
}
