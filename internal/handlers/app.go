// Package handlers is the JSON surface staff tools talk to.
package handlers

import (
	"net/http"

	"github.com/lojf/dancestudio/internal/jobs"
	"github.com/lojf/dancestudio/internal/services"
)

// App holds the services behind every handler. The embedded Studio also
// drives the on-demand versions of the scheduled jobs.
type App struct {
	*jobs.Studio
	Attendance *services.Attendance
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
