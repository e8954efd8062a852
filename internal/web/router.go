package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lojf/dancestudio/internal/handlers"
)

func Router(app *handlers.App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health)

	// Classes
	r.Route("/classes", func(cr chi.Router) {
		cr.Get("/", app.ListClasses)
		cr.Post("/", app.AddClass)
		cr.Put("/order", app.SaveOrder)
		cr.Post("/{id}/schedule", app.UpdateSchedule)
		cr.Delete("/{id}", app.DeleteClass)

		// Roster of one instance
		cr.Get("/{id}/students", app.ClassStudents)
		cr.Post("/{id}/students", app.Enroll)
		cr.Get("/{id}/roster.csv", app.RosterCSV)
		cr.Post("/{id}/import", app.ImportStudents)
	})

	// Students
	r.Route("/students", func(sr chi.Router) {
		sr.Get("/search", app.Search)
		sr.Post("/archive", app.Archive)
		sr.Put("/{id}", app.UpdateStudent)
		sr.Post("/{id}/extend", app.Extend)
		sr.Post("/{id}/single-day", app.SingleDay)
		sr.Get("/{id}/attendance", app.AttendanceDates)
		sr.Post("/{id}/attendance", app.MarkAttendance)
		sr.Delete("/{id}/attendance/{date}", app.UnmarkAttendance)
		sr.Get("/{id}/reminder.png", app.ReminderQR)
	})
	r.Get("/undo", app.UndoStatus)
	r.Post("/undo", app.Undo)

	// Cash register
	r.Get("/ledger", app.Ledger)
	r.Put("/ledger", app.SaveLedger)

	// On-demand runs of the scheduled jobs
	r.Post("/recompute", app.Recompute)
	r.Post("/export", app.Export)
	r.Post("/reminders", app.Remind)
	r.Post("/backup", app.Backup)

	return r
}
