package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

type studentJSON struct {
	ID                uint   `json:"id"`
	ClassInstanceID   uint   `json:"class_instance_id"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	SessionsRemaining int    `json:"sessions_remaining"`
	TrackDay          string `json:"track_day,omitempty"`
	Note              string `json:"note"`
	DayBalance        *int   `json:"day_balance"`
	Sign              string `json:"sign"`
	RecentlyAttended  bool   `json:"recently_attended"`
}

func toStudentJSON(v services.StudentView) studentJSON {
	return studentJSON{
		ID:                v.ID,
		ClassInstanceID:   v.ClassInstanceID,
		Name:              v.Name,
		Phone:             v.Phone,
		StartDate:         v.StartDate,
		EndDate:           v.EndDate,
		SessionsRemaining: v.SessionsRemaining,
		TrackDay:          v.TrackDay,
		Note:              v.Note,
		DayBalance:        v.DayBalance,
		Sign:              string(v.Sign),
		RecentlyAttended:  v.RecentlyAttended,
	}
}

// ClassStudents lists an instance's students with their derived columns.
func (a *App) ClassStudents(w http.ResponseWriter, r *http.Request) {
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
	ids := make([]uint, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	last, err := a.Attendance.LastByStudent(ids)
	if err != nil {
		writeError(w, r, err)
		return
	}

	today := a.Today()
	wd := schedule.ParseWeekdays(inst.Days)
	out := make([]studentJSON, 0, len(students))
	for _, st := range students {
		var lp *time.Time
		if d, ok := last[st.ID]; ok {
			lp = &d
		}
		out = append(out, toStudentJSON(services.View(st, wd, today, lp)))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"class":    toInstanceJSON(inst),
		"students": out,
	})
}

type enrollRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Note  string `json:"note"`
	Start string `json:"start"`
}

func (a *App) Enroll(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	today := a.Today()
	st, err := a.Students.Enroll(services.EnrollInput{
		ClassInstanceID: id,
		Name:            req.Name,
		Phone:           req.Phone,
		Note:            req.Note,
		Start:           schedule.DateOr(req.Start, today),
	}, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "enrolled", toStudentJSON(services.View(st, 0, today, nil)))
}

type updateRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Start *string `json:"start_date"`
	End   *string `json:"end_date"`
	Note  *string `json:"note"`
}

// UpdateStudent applies an inline edit; absent fields are left alone.
func (a *App) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	today := a.Today()
	st, err := a.Students.Update(id, services.UpdateInput{
		Name:  req.Name,
		Phone: req.Phone,
		Start: req.Start,
		End:   req.End,
		Note:  req.Note,
	}, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "saved", toStudentJSON(services.View(st, 0, today, nil)))
}

type extendRequest struct {
	Sessions int `json:"sessions"`
}

func (a *App) Extend(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req extendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	today := a.Today()
	st, err := a.Students.Extend(id, req.Sessions, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "extended", toStudentJSON(services.View(st, 0, today, nil)))
}

type singleDayRequest struct {
	Day string `json:"day"`
}

// SingleDay counts the student's sessions on one of the class days only. An
// empty day counts every class day again.
func (a *App) SingleDay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req singleDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	today := a.Today()
	st, err := a.Students.TrackSingleDay(id, req.Day, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "saved", toStudentJSON(services.View(st, 0, today, nil)))
}

type archiveRequest struct {
	IDs []uint `json:"ids"`
}

type archiveResponse struct {
	Moved   int      `json:"moved"`
	Deleted int      `json:"deleted"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Archive moves the selected students to their group's archive, deleting
// the ones already present there.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, errors.Wrap(services.ErrInvalidInput, "no students selected"))
		return
	}
	res, err := a.Students.BulkArchiveOrDelete(req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := archiveResponse{Moved: res.Moved, Deleted: res.Deleted, Failed: res.Failed}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	writeOK(w, "archived", out)
}

func (a *App) Undo(w http.ResponseWriter, r *http.Request) {
	e, err := a.Students.Undo(a.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "undone", map[string]any{"id": e.ID, "label": e.Label, "restored": len(e.Rows)})
}

// UndoStatus tells whether there is an archive batch to undo.
func (a *App) UndoStatus(w http.ResponseWriter, r *http.Request) {
	e, ok := a.Students.History().Peek()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": true,
		"label":     e.Label,
		"at":        e.At,
		"students":  len(e.Rows),
	})
}

type searchHit struct {
	studentJSON
	Class string `json:"class"`
	Label string `json:"label"`
}

// Search looks students up across every class by name or phone digits.
func (a *App) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	hits, err := a.Students.Search(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	today := a.Today()
	out := make([]searchHit, 0, len(hits))
	for _, h := range hits {
		v := services.View(h.Student, schedule.ParseWeekdays(h.Days), today, nil)
		out = append(out, searchHit{studentJSON: toStudentJSON(v), Class: h.ClassName, Label: h.ClassLabel()})
	}
	writeJSON(w, http.StatusOK, out)
}
