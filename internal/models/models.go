package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind separates regular schedule slots from the per-group archive of former students.
type Kind string

const (
	KindActive  Kind = "active"
	KindArchive Kind = "archive"
)

// ArchiveLabel is how archive instances are shown to staff.
const ArchiveLabel = "ESKİLER"

type ClassInstance struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name    string `gorm:"not null"`
	NameKey string `gorm:"not null;uniqueIndex:idx_class_slot,priority:1"`
	Kind    Kind   `gorm:"not null;default:active;uniqueIndex:idx_class_slot,priority:2"`
	Days    string `gorm:"not null;uniqueIndex:idx_class_slot,priority:3"` // "Pzt,Çarşamba"
	Hour    string `gorm:"not null;uniqueIndex:idx_class_slot,priority:4"` // "19.00"

	Price decimal.NullDecimal `gorm:"type:text"`

	Students []Student
}

func (c ClassInstance) IsArchive() bool { return c.Kind == KindArchive }

// Label is the tab caption of the instance inside its group.
func (c ClassInstance) Label() string {
	if c.IsArchive() {
		return ArchiveLabel
	}
	return c.Days + " " + c.Hour
}

// Dates are kept as YYYY-MM-DD text; staff edit them by hand and imports carry
// whatever the spreadsheet had, so parsing happens at the edges.
type Student struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ClassInstanceID   uint   `gorm:"index;not null"`
	Name              string `gorm:"not null"`
	Phone             string
	StartDate         string
	EndDate           string
	SessionsRemaining int
	Note              string
	// TrackDay limits the balance to one class day ("Pzt"); empty counts
	// every day of the instance.
	TrackDay string
}

// AttendanceMark rows are not unique per day and survive student deletion.
type AttendanceMark struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	StudentID uint   `gorm:"index"`
	Date      string `gorm:"index"`
}

// LedgerRow is one line of the cash register sheet. The whole table is
// rewritten on every save.
type LedgerRow struct {
	ID uint `gorm:"primaryKey"`

	Name          string
	Amount        decimal.Decimal `gorm:"type:text"`
	PaymentMethod string
	Course        string
	Note          string
}

// CashBox holds the carried-over cash ("eski kasa"); only the latest row counts.
type CashBox struct {
	ID        uint `gorm:"primaryKey"`
	UpdatedAt time.Time

	OldCash decimal.Decimal `gorm:"type:text"`
}

type ClassOrder struct {
	NameKey  string `gorm:"primaryKey"`
	Position int
}
