package handlers

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/lojf/dancestudio/internal/services"
	"github.com/lojf/dancestudio/internal/sheets"
)

const maxUpload = 32 << 20

// ImportStudents reads an uploaded workbook ("file") into the instance.
// Repeated "sheet" fields limit the import to those sheets.
func (a *App) ImportStudents(w http.ResponseWriter, r *http.Request) {
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
	if inst.IsArchive() {
		writeError(w, r, services.ErrArchiveInstance)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, "file missing"))
		return
	}
	defer file.Close()

	res, err := sheets.ImportStudents(file, r.MultipartForm.Value["sheet"], id, a.Students, a.Today())
	if err != nil {
		writeError(w, r, errors.Wrap(services.ErrInvalidInput, err.Error()))
		return
	}
	writeOK(w, "imported", map[string]any{"imported": res.Imported, "errors": res.Errors})
}
