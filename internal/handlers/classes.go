package handlers

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

type instanceJSON struct {
	ID      uint     `json:"id"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Days    []string `json:"days"`
	Hour    string   `json:"hour"`
	Label   string   `json:"label"`
	Price   string   `json:"price,omitempty"`
	Archive bool     `json:"archive"`
}

func toInstanceJSON(c models.ClassInstance) instanceJSON {
	out := instanceJSON{
		ID:      c.ID,
		Name:    c.Name,
		Kind:    string(c.Kind),
		Hour:    c.Hour,
		Label:   c.Label(),
		Archive: c.IsArchive(),
		Days:    []string{},
	}
	if c.Days != "" {
		out.Days = strings.Split(c.Days, ",")
	}
	if c.Price.Valid {
		out.Price = c.Price.Decimal.StringFixed(2)
	}
	return out
}

type groupJSON struct {
	Name      string         `json:"name"`
	Key       string         `json:"key"`
	Instances []instanceJSON `json:"instances"`
}

// ListClasses returns every group in tab order.
func (a *App) ListClasses(w http.ResponseWriter, r *http.Request) {
	groups, err := a.Registry.Groups()
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]groupJSON, 0, len(groups))
	for _, g := range groups {
		gj := groupJSON{Name: g.Name, Key: g.NameKey}
		for _, inst := range g.Instances {
			gj.Instances = append(gj.Instances, toInstanceJSON(inst))
		}
		out = append(out, gj)
	}
	writeJSON(w, http.StatusOK, out)
}

// parseDays reads day tokens ("Pzt", "çarşamba", ...). Unknown tokens fail.
func parseDays(tokens []string) (schedule.Weekdays, error) {
	var wd schedule.Weekdays
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		idx, ok := schedule.DayIndex(tok)
		if !ok {
			return 0, errors.Wrapf(services.ErrInvalidInput, "unknown day %q", tok)
		}
		wd = wd.With(idx)
	}
	if wd.Empty() {
		return 0, errors.Wrap(services.ErrInvalidInput, "pick at least one day")
	}
	return wd, nil
}

type addClassRequest struct {
	Name  string   `json:"name"`
	Days  []string `json:"days"`
	Time  string   `json:"time"`
	Price string   `json:"price"`
}

func (a *App) AddClass(w http.ResponseWriter, r *http.Request) {
	var req addClassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wd, err := parseDays(req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := services.AddInstanceInput{Name: req.Name, Weekdays: wd, Time: req.Time}
	if strings.TrimSpace(req.Price) != "" {
		p, err := services.ParseAmount(req.Price)
		if err != nil {
			writeError(w, r, errors.Wrap(services.ErrInvalidInput, err.Error()))
			return
		}
		in.Price = &p
	}
	inst, err := a.Registry.AddInstance(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "added", toInstanceJSON(inst))
}

type orderRequest struct {
	Names []string `json:"names"`
}

// SaveOrder stores the tab order of groups as sent by the client.
func (a *App) SaveOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	keys := make([]string, 0, len(req.Names))
	for _, n := range req.Names {
		if k := services.NameKey(n); k != "" {
			keys = append(keys, k)
		}
	}
	if err := a.Registry.SaveOrder(keys); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "saved", nil)
}

type scheduleRequest struct {
	Days []string `json:"days"`
	Time string   `json:"time"`
}

// UpdateSchedule moves an instance (and its group twins on the same slot)
// to new days and time.
func (a *App) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wd, err := parseDays(req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := a.Registry.UpdateScheduleByID(id, wd, req.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "saved", map[string]int64{"updated": n})
}

func (a *App) DeleteClass(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Registry.DeleteInstance(id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "deleted", nil)
}
