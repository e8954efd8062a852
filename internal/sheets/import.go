package sheets

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

// Enroller is the part of the student ledger an import needs.
type Enroller interface {
	Enroll(in services.EnrollInput, today time.Time) (models.Student, error)
}

type ImportResult struct {
	Imported int
	Errors   []string
}

// Header candidates, most specific first.
var (
	nameHeaders  = []string{"ad soyad", "adi soyadi", "adı soyadı", "isim", "name", "ad"}
	phoneHeaders = []string{"telefon", "telefon no", "gsm", "numara", "phone"}
	startHeaders = []string{"başlangıç tarihi", "baslangic tarihi", "başlangıç", "baslangic", "start", "start date", "start_time"}
	endHeaders   = []string{"ödeme tarihi", "odeme tarihi", "bitiş tarihi", "bitis tarihi", "bitiş", "bitis", "end", "end date", "end_time"}
)

var reHeaderJunk = regexp.MustCompile(`[^a-z0-9 ]`)

func normHeader(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(services.NameKey(s), "ı", "i")
	return strings.TrimSpace(reHeaderJunk.ReplaceAllString(s, ""))
}

// findCol returns the column index of the first candidate found in header:
// exact matches win over substring matches. -1 when nothing fits.
func findCol(header []string, cands ...string) int {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = normHeader(h)
	}
	wants := make([]string, len(cands))
	for i, c := range cands {
		wants[i] = normHeader(c)
	}
	for _, w := range wants {
		for i, h := range norm {
			if h != "" && h == w {
				return i
			}
		}
	}
	for _, w := range wants {
		if w == "" {
			continue
		}
		for i, h := range norm {
			if strings.Contains(h, w) {
				return i
			}
		}
	}
	return -1
}

// month-first forms that day-first parsing leaves behind
var usDateLayouts = []string{"01/02/2006", "1/2/2006", "1/2/06"}

// cellDate reads an Excel serial or date text. ok is false for blanks and
// anything unreadable.
func cellDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "nat") {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return schedule.Day(t), true
	}
	if t, err := schedule.ParseDate(s); err == nil {
		return t, true
	}
	for _, layout := range usDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return schedule.Day(t), true
		}
	}
	return time.Time{}, false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ImportStudents enrolls every named row of the chosen sheets (all sheets
// when none are given) into the class instance. A bad sheet or row is noted
// in the result and the import carries on.
func ImportStudents(r io.Reader, sheetNames []string, classID uint, enroll Enroller, today time.Time) (ImportResult, error) {
	var res ImportResult
	f, err := excelize.OpenReader(r)
	if err != nil {
		return res, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	if len(sheetNames) == 0 {
		sheetNames = f.GetSheetList()
	}
	if len(sheetNames) == 0 {
		return res, errors.New("workbook has no sheets")
	}

	for _, sname := range sheetNames {
		rows, err := f.GetRows(sname, excelize.Options{RawCellValue: true})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("[%s] okunamadı: %v", sname, err))
			continue
		}
		if len(rows) < 2 {
			continue
		}
		header := rows[0]
		nameCol := findCol(header, nameHeaders...)
		if nameCol < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("[%s] 'Ad/İsim' kolonu bulunamadı.", sname))
			continue
		}
		phoneCol := findCol(header, phoneHeaders...)
		startCol := findCol(header, startHeaders...)
		endCol := findCol(header, endHeaders...)

		for _, row := range rows[1:] {
			name := cell(row, nameCol)
			if name == "" || strings.EqualFold(name, "nan") {
				continue
			}
			start, hasStart := cellDate(cell(row, startCol))
			end, hasEnd := cellDate(cell(row, endCol))
			switch {
			case !hasStart && hasEnd:
				start = end.AddDate(0, 0, -schedule.Period)
			case hasStart && !hasEnd:
				end = start.AddDate(0, 0, schedule.Period)
			case !hasStart && !hasEnd:
				start = schedule.Day(today)
				end = start.AddDate(0, 0, schedule.Period)
			}

			_, err := enroll.Enroll(services.EnrollInput{
				ClassInstanceID: classID,
				Name:            name,
				Phone:           cell(row, phoneCol),
				Start:           start,
				End:             &end,
			}, today)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("[%s] '%s' eklenemedi: %v", sname, name, err))
				continue
			}
			res.Imported++
		}
	}
	return res, nil
}
