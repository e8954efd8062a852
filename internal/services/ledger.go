package services

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lojf/dancestudio/internal/models"
)

// Payment methods that never pass through the cash drawer.
var nonCashMethods = map[string]bool{"EFT": true, "KART": true}

// Billing keeps the cash register sheet and the carried-over cash.
type Billing struct {
	db *gorm.DB
}

func NewBilling(db *gorm.DB) *Billing { return &Billing{db: db} }

func (b *Billing) Rows() ([]models.LedgerRow, error) {
	var rows []models.LedgerRow
	err := b.db.Order("id").Find(&rows).Error
	return rows, classify(err, "load ledger")
}

// ReplaceAll swaps the whole sheet for rows in one transaction. Fully blank
// rows are dropped.
func (b *Billing) ReplaceAll(rows []models.LedgerRow) error {
	keep := make([]models.LedgerRow, 0, len(rows))
	for _, r := range rows {
		r.ID = 0
		r.Name = strings.TrimSpace(r.Name)
		r.PaymentMethod = strings.ToUpper(strings.TrimSpace(r.PaymentMethod))
		r.Course = strings.TrimSpace(r.Course)
		r.Note = strings.TrimSpace(r.Note)
		if r.Name == "" && r.Amount.IsZero() && r.PaymentMethod == "" && r.Course == "" && r.Note == "" {
			continue
		}
		keep = append(keep, r)
	}
	return classify(b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.LedgerRow{}).Error; err != nil {
			return err
		}
		if len(keep) == 0 {
			return nil
		}
		return tx.Create(&keep).Error
	}), "save ledger")
}

// OldCash is the cash carried over from before the sheet; zero when unset.
func (b *Billing) OldCash() (decimal.Decimal, error) {
	var box models.CashBox
	err := b.db.Order("id DESC").Limit(1).Find(&box).Error
	if err != nil {
		return decimal.Zero, classify(err, "load old cash")
	}
	return box.OldCash, nil
}

func (b *Billing) SaveOldCash(v decimal.Decimal) error {
	return classify(b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CashBox{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.CashBox{OldCash: v}).Error
	}), "save old cash")
}

// CashTotal is the drawer total: old cash plus every amount not paid by
// transfer or card.
func CashTotal(rows []models.LedgerRow, old decimal.Decimal) decimal.Decimal {
	total := old
	for _, r := range rows {
		if nonCashMethods[strings.ToUpper(strings.TrimSpace(r.PaymentMethod))] {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}

// ParseAmount reads money typed by staff: "1.250,50", "1250.5", "₺300".
// Blank text is zero.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "₺"), "TL"))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		// Turkish style: dots group thousands, comma is the decimal mark
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidInput, "amount %q", text)
	}
	return d, nil
}
