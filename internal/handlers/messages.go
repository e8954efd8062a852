package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/lojf/dancestudio/internal/services"
)

var okText = map[string]string{
	"saved":      "Kaydedildi.",
	"added":      "Ders eklendi.",
	"enrolled":   "Öğrenci eklendi.",
	"deleted":    "Ders silindi.",
	"extended":   "Ödeme tarihi uzatıldı.",
	"archived":   "Öğrenciler eskilere taşındı.",
	"undone":     "Geri alındı.",
	"marked":     "Yoklama alındı.",
	"unmarked":   "Yoklama silindi.",
	"recomputed": "Bakiyeler güncellendi.",
	"exported":   "Excel dosyaları yazıldı.",
	"reminded":   "Hatırlatmalar gönderildi.",
	"backed_up":  "Veritabanı yedeklendi.",
	"imported":   "İçe aktarma tamamlandı.",
}

var errText = map[string]string{
	"duplicate_instance": "Bu gün ve saatte aynı ders zaten var.",
	"store_busy":         "Veritabanı meşgul, lütfen tekrar deneyin.",
	"not_found":          "Kayıt bulunamadı.",
	"malformed_date":     "Tarih okunamadı. Örnek: 2024-01-29 veya 29-01-2024.",
	"invalid_input":      "Eksik ya da hatalı bilgi.",
	"archive_instance":   "ESKİLER sekmesi değiştirilemez.",
	"instance_not_empty": "Derste hâlâ öğrenci var. Önce öğrencileri taşıyın.",
	"bad_request":        "İstek okunamadı.",
	"internal":           "Beklenmeyen bir hata oluştu.",
}

// errorKey maps an error onto a message key and HTTP status.
func errorKey(err error) (string, int) {
	switch {
	case errors.Is(err, services.ErrDuplicateInstance):
		return "duplicate_instance", http.StatusConflict
	case errors.Is(err, services.ErrStoreBusy):
		return "store_busy", http.StatusServiceUnavailable
	case errors.Is(err, services.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, services.ErrMalformedDate):
		return "malformed_date", http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid_input", http.StatusBadRequest
	case errors.Is(err, services.ErrArchiveInstance):
		return "archive_instance", http.StatusConflict
	case errors.Is(err, services.ErrInstanceNotEmpty):
		return "instance_not_empty", http.StatusConflict
	case errors.Is(err, errBadRequest):
		return "bad_request", http.StatusBadRequest
	}
	return "internal", http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	key, status := errorKey(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorBody{Error: key, Message: errText[key], Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type okBody struct {
	OK      string `json:"ok"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, key string, data any) {
	writeJSON(w, http.StatusOK, okBody{OK: key, Message: okText[key], Data: data})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Wrapf(errBadRequest, "bad %s %q", name, chi.URLParam(r, name))
	}
	return uint(id), nil
}
