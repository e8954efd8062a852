package handlers

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/services"
)

type ledgerRowJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Method string `json:"method"`
	Course string `json:"course"`
	Note   string `json:"note"`
}

type ledgerJSON struct {
	Rows    []ledgerRowJSON `json:"rows"`
	OldCash string          `json:"old_cash"`
	Total   string          `json:"total,omitempty"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func (a *App) ledgerBody() (ledgerJSON, error) {
	rows, err := a.Billing.Rows()
	if err != nil {
		return ledgerJSON{}, err
	}
	old, err := a.Billing.OldCash()
	if err != nil {
		return ledgerJSON{}, err
	}
	out := ledgerJSON{Rows: make([]ledgerRowJSON, 0, len(rows)), OldCash: money(old)}
	for _, r := range rows {
		out.Rows = append(out.Rows, ledgerRowJSON{
			Name:   r.Name,
			Amount: money(r.Amount),
			Method: r.PaymentMethod,
			Course: r.Course,
			Note:   r.Note,
		})
	}
	out.Total = money(services.CashTotal(rows, old))
	return out, nil
}

func (a *App) Ledger(w http.ResponseWriter, r *http.Request) {
	body, err := a.ledgerBody()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// SaveLedger replaces the whole sheet and the carried-over cash.
func (a *App) SaveLedger(w http.ResponseWriter, r *http.Request) {
	var req ledgerJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rows := make([]models.LedgerRow, 0, len(req.Rows))
	for i, row := range req.Rows {
		amt, err := services.ParseAmount(row.Amount)
		if err != nil {
			writeError(w, r, errors.Wrapf(services.ErrInvalidInput, "row %d: %v", i+1, err))
			return
		}
		rows = append(rows, models.LedgerRow{
			Name:          row.Name,
			Amount:        amt,
			PaymentMethod: row.Method,
			Course:        row.Course,
			Note:          row.Note,
		})
	}
	old, err := services.ParseAmount(req.OldCash)
	if err != nil {
		writeError(w, r, errors.Wrapf(services.ErrInvalidInput, "old cash: %v", err))
		return
	}

	if err := a.Billing.ReplaceAll(rows); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Billing.SaveOldCash(old); err != nil {
		writeError(w, r, err)
		return
	}
	body, err := a.ledgerBody()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "saved", body)
}
