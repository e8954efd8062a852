package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

// RosterCSV downloads an instance's students with their balances.
func (a *App) RosterCSV(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := a.Registry.Instance(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	students, err := a.Students.ByInstance(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	today := a.Today()
	wd := schedule.ParseWeekdays(inst.Days)
	name := strings.NewReplacer(" ", "_", ",", "-", "/", "-").Replace(inst.Name + "_" + inst.Label())
	filename := fmt.Sprintf("%s_%s.csv", name, today.Format(schedule.TRDate))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	_ = cw.Write([]string{"NUMARA", "ADI SOYADI", "TELEFON", "BAŞLANGIÇ TARİHİ", "ÖDEME TARİHİ", "KALAN GÜN", "KALAN DERS", "NOT"})
	for i, st := range students {
		v := services.View(st, wd, today, nil)
		days := ""
		if v.DayBalance != nil {
			days = strconv.Itoa(*v.DayBalance)
		}
		_ = cw.Write([]string{
			strconv.Itoa(i + 1),
			st.Name,
			st.Phone,
			st.StartDate,
			st.EndDate,
			days,
			strconv.Itoa(st.SessionsRemaining),
			st.Note,
		})
	}
}
