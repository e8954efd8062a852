package sheets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

// ClassSheet is one schedule slot and its students, as exported.
type ClassSheet struct {
	Name     string
	Days     string
	Hour     string
	Students []models.Student
}

// Collect gathers every active slot that has students, in tab order.
func Collect(reg *services.Registry, st *services.Students) ([]ClassSheet, error) {
	groups, err := reg.Groups()
	if err != nil {
		return nil, err
	}
	var out []ClassSheet
	for _, g := range groups {
		for _, inst := range g.Instances {
			if inst.IsArchive() {
				continue
			}
			students, err := st.ByInstance(inst.ID)
			if err != nil {
				return nil, err
			}
			if len(students) == 0 {
				continue
			}
			out = append(out, ClassSheet{Name: g.Name, Days: inst.Days, Hour: inst.Hour, Students: students})
		}
	}
	return out, nil
}

var classHeaders = []string{"NUMARA", "ADI SOYADI", "TELEFON", "BAŞLANGIÇ TARİHİ", "ÖDEME TARİHİ", "KALAN GÜN"}

var classColWidths = []float64{9, 30, 20, 18, 18, 12, 16}

const sheetNameMax = 31

// AvailablePath returns dir/<stem>.<ext>, or "<stem> (n).<ext>" when taken.
func AvailablePath(dir, stem, ext string) string {
	p := filepath.Join(dir, stem+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		p = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
}

func dateStem(today time.Time) string {
	return today.Format(schedule.TRDate)
}

var sheetNameCleaner = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// sheetName builds a unique, Excel-legal tab name.
func sheetName(c ClassSheet, used map[string]bool) string {
	base := []rune(sheetNameCleaner.Replace(fmt.Sprintf("%s_%s_%s", c.Name, c.Days, c.Hour)))
	if len(base) > sheetNameMax {
		base = base[:sheetNameMax]
	}
	name := string(base)
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		cut := base
		if len(cut)+len(suffix) > sheetNameMax {
			cut = cut[:sheetNameMax-len(suffix)]
		}
		name = string(cut) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

type classStyles struct {
	header, today, body, date int
	green, pink               int
}

func newClassStyles(f *excelize.File) (classStyles, error) {
	var s classStyles
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	yellow := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFE699"}}
	dateFmt := "mm/dd/yyyy"
	dayFmt := "dd-mm-yyyy"

	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.today, err = f.NewStyle(&excelize.Style{Fill: yellow, Alignment: center, Border: border, CustomNumFmt: &dayFmt}); err != nil {
		return s, err
	}
	if s.body, err = f.NewStyle(&excelize.Style{Fill: yellow, Alignment: center, Border: border}); err != nil {
		return s, err
	}
	if s.date, err = f.NewStyle(&excelize.Style{Fill: yellow, Alignment: center, Border: border, CustomNumFmt: &dateFmt}); err != nil {
		return s, err
	}
	if s.green, err = f.NewConditionalStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}}}); err != nil {
		return s, err
	}
	if s.pink, err = f.NewConditionalStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8CBAD"}}}); err != nil {
		return s, err
	}
	return s, nil
}

// ExportClasses writes one workbook with a sheet per class slot into dir.
// Payment dates and remaining days are formulas against =TODAY(), so the file
// stays live when opened on a later day. When no slot has students nothing is
// written and ok is false.
func ExportClasses(dir string, classes []ClassSheet, today time.Time) (path string, ok bool, err error) {
	var filled []ClassSheet
	for _, c := range classes {
		if len(c.Students) > 0 {
			filled = append(filled, c)
		}
	}
	if len(filled) == 0 {
		return "", false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, errors.Wrap(err, "export dir")
	}

	path = AvailablePath(dir, dateStem(today), ".xlsx")
	if err := saveClassWorkbook(path, filled); err != nil {
		return "", false, err
	}
	return path, true, nil
}

var fileNameCleaner = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "-",
)

// ExportClassesPerGroup writes one workbook per class group, named
// "<DD-MM-YYYY> - <Class>.xlsx", with a tab for each of the group's slots.
// Slots without students are left out, and so are groups left empty by that.
func ExportClassesPerGroup(dir string, classes []ClassSheet, today time.Time) ([]string, error) {
	var order []string
	groups := map[string][]ClassSheet{}
	for _, c := range classes {
		if len(c.Students) == 0 {
			continue
		}
		if _, ok := groups[c.Name]; !ok {
			order = append(order, c.Name)
		}
		groups[c.Name] = append(groups[c.Name], c)
	}
	if len(order) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "export dir")
	}

	paths := make([]string, 0, len(order))
	for _, name := range order {
		stem := dateStem(today) + " - " + strings.TrimSpace(fileNameCleaner.Replace(name))
		path := AvailablePath(dir, stem, ".xlsx")
		if err := saveClassWorkbook(path, groups[name]); err != nil {
			return paths, errors.Wrapf(err, "class %s", name)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// saveClassWorkbook writes one tab per slot to a new workbook at path.
func saveClassWorkbook(path string, classes []ClassSheet) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newClassStyles(f)
	if err != nil {
		return errors.Wrap(err, "styles")
	}

	used := map[string]bool{}
	for _, c := range classes {
		name := sheetName(c, used)
		if _, err := f.NewSheet(name); err != nil {
			return errors.Wrapf(err, "sheet %s", name)
		}
		if err := writeClassSheet(f, name, c, styles); err != nil {
			return errors.Wrapf(err, "sheet %s", name)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	return errors.Wrap(f.SaveAs(path), "save workbook")
}

func writeClassSheet(f *excelize.File, sheet string, c ClassSheet, st classStyles) error {
	for i, w := range classColWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(sheet, 1, 20); err != nil {
		return err
	}

	for i, h := range classHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", st.header); err != nil {
		return err
	}
	// G2 holds today; every row points at $G$2
	f.SetCellValue(sheet, "G1", "BUGÜN")
	if err := f.SetCellFormula(sheet, "G2", "=TODAY()"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "G1", "G2", st.today); err != nil {
		return err
	}

	for i, s := range c.Students {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), s.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), s.Phone)
		if end, err := schedule.ParseDate(s.EndDate); err == nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), end.AddDate(0, 0, -schedule.Period))
		}
		if err := f.SetCellFormula(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("=SUM(D%d+%d)", row, schedule.Period)); err != nil {
			return err
		}
		if err := f.SetCellFormula(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf(`=IF(E%d="","",E%d-$G$2)`, row, row)); err != nil {
			return err
		}
	}

	last := len(c.Students) + 1
	if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("C%d", last), st.body); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "D2", fmt.Sprintf("E%d", last), st.date); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "F2", fmt.Sprintf("F%d", last), st.body); err != nil {
		return err
	}

	rng := fmt.Sprintf("F2:F%d", last)
	if err := f.SetConditionalFormat(sheet, rng, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: ">=", Format: st.green, Value: "0"},
		{Type: "cell", Criteria: "<", Format: st.pink, Value: "0"},
	}); err != nil {
		return err
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

var ledgerHeaders = []string{"İsim", "Miktar", "Ödeme Şekli", "Ders", "Not"}

// ExportLedger writes the cash register sheet with the carried-over cash and
// the drawer total below the rows.
func ExportLedger(dir string, rows []models.LedgerRow, old, total decimal.Decimal, today time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "export dir")
	}
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Kasa"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}
	for i, h := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, r := range rows {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Amount.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.PaymentMethod)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Course)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Note)
	}
	foot := len(rows) + 3
	f.SetCellValue(sheet, fmt.Sprintf("A%d", foot), "ESKİ KASA")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", foot), old.InexactFloat64())
	f.SetCellValue(sheet, fmt.Sprintf("A%d", foot+1), "TOPLAM")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", foot+1), total.InexactFloat64())

	path := AvailablePath(dir, dateStem(today), ".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrap(err, "save ledger")
	}
	return path, nil
}
