package handlers

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/lojf/dancestudio/internal/bot"
	"github.com/lojf/dancestudio/internal/services"
)

// ReminderQR serves a QR code that opens WhatsApp with the payment reminder
// for the student already typed in. ?size= sets the edge in pixels.
func (a *App) ReminderQR(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := a.Students.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if services.DigitsOnly(st.Phone) == "" {
		writeError(w, r, errors.Wrapf(services.ErrInvalidInput, "student %d has no phone", id))
		return
	}
	inst, err := a.Registry.Instance(st.ClassInstanceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	size := 256
	if n, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && n >= 64 && n <= 1024 {
		size = n
	}
	png, err := bot.ReminderQR(st.Phone, bot.ReminderText(inst.Name, a.Today()), size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
