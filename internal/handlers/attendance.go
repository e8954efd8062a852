package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/dancestudio/internal/schedule"
)

func (a *App) AttendanceDates(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := a.Students.Get(id); err != nil {
		writeError(w, r, err)
		return
	}
	dates, err := a.Attendance.Dates(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = schedule.FormatDate(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"student_id": id, "dates": out})
}

type markRequest struct {
	Date string `json:"date"`
}

// MarkAttendance records a visit; without a date the visit is today.
func (a *App) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req markRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	day := a.Today()
	if strings.TrimSpace(req.Date) != "" {
		if day, err = schedule.ParseDate(req.Date); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if _, err := a.Students.Get(id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Attendance.Mark(id, day); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "marked", map[string]string{"date": schedule.FormatDate(day)})
}

func (a *App) UnmarkAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	day, err := schedule.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Attendance.Unmark(id, day); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "unmarked", map[string]string{"date": schedule.FormatDate(day)})
}
