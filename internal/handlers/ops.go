package handlers

import (
	"net/http"
	"strconv"
)

// Recompute refreshes every stored session balance.
func (a *App) Recompute(w http.ResponseWriter, r *http.Request) {
	res, err := a.Students.RecomputeAllBalances(a.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "recomputed", map[string]int{"updated": res.Updated, "skipped": res.Skipped})
}

// Export writes today's workbooks. With ?per_class=1 it writes one class
// workbook per group instead of the combined one and the ledger.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	if perClass, _ := strconv.ParseBool(r.URL.Query().Get("per_class")); perClass {
		files, err := a.Studio.ExportPerGroup()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if files == nil {
			files = []string{}
		}
		writeOK(w, "exported", map[string][]string{"files": files})
		return
	}
	classes, ledger, err := a.Studio.Export()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "exported", map[string]string{"classes": classes, "ledger": ledger})
}

func (a *App) Remind(w http.ResponseWriter, r *http.Request) {
	rep, err := a.Reminders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "reminded", map[string]int{
		"due":     rep.Due,
		"sent":    rep.Sent,
		"skipped": rep.Skipped,
		"failed":  rep.Failed,
	})
}

func (a *App) Backup(w http.ResponseWriter, r *http.Request) {
	path, err := a.Studio.Backup()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "backed_up", map[string]string{"file": path})
}
