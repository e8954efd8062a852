package sheets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/services"
)

var today = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestExportClasses(t *testing.T) {
	dir := t.TempDir()
	classes := []ClassSheet{
		{Name: "Salsa", Days: "Pzt,Çarşamba", Hour: "19.00", Students: []models.Student{
			{Name: "Ali", Phone: "530 111 22 33", EndDate: "2024-01-29"},
			{Name: "Veli", EndDate: ""},
		}},
		{Name: "Bachata", Days: "Salı", Hour: "20.00"},
	}

	path, ok, err := ExportClasses(dir, classes, today)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "15-01-2024.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Salsa_Pzt,Çarşamba_19.00"}, f.GetSheetList())
	sheet := f.GetSheetList()[0]

	h, _ := f.GetCellValue(sheet, "F1")
	assert.Equal(t, "KALAN GÜN", h)
	g2, _ := f.GetCellFormula(sheet, "G2")
	assert.Equal(t, "TODAY()", trimEq(g2))
	e2, _ := f.GetCellFormula(sheet, "E2")
	assert.Equal(t, "SUM(D2+28)", trimEq(e2))
	f3, _ := f.GetCellFormula(sheet, "F3")
	assert.Equal(t, `IF(E3="","",E3-$G$2)`, trimEq(f3))

	d2, _ := f.GetCellValue(sheet, "D2", excelize.Options{RawCellValue: true})
	start, ok := cellDate(d2)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	d3, _ := f.GetCellValue(sheet, "D3")
	assert.Empty(t, d3)

	// second export the same day gets a suffix
	path2, _, err := ExportClasses(dir, classes, today)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "15-01-2024 (1).xlsx"), path2)
}

func trimEq(s string) string {
	if len(s) > 0 && s[0] == '=' {
		return s[1:]
	}
	return s
}

func TestExportClasses_NoData(t *testing.T) {
	dir := t.TempDir()
	path, ok, err := ExportClasses(dir, []ClassSheet{{Name: "Salsa"}}, today)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, path)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestExportClassesPerGroup(t *testing.T) {
	dir := t.TempDir()
	ali := models.Student{Name: "Ali", EndDate: "2024-01-29"}
	classes := []ClassSheet{
		{Name: "Salsa", Days: "Pzt,Çarşamba", Hour: "19.00", Students: []models.Student{ali}},
		{Name: "Bachata", Days: "Salı", Hour: "20.00"},
		{Name: "Salsa", Days: "Cuma", Hour: "21.00", Students: []models.Student{{Name: "Veli"}}},
		{Name: "Tango/Vals", Days: "Pazar", Hour: "18.00", Students: []models.Student{ali}},
	}

	paths, err := ExportClassesPerGroup(dir, classes, today)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "15-01-2024 - Salsa.xlsx"),
		filepath.Join(dir, "15-01-2024 - Tango-Vals.xlsx"),
	}, paths)

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Salsa_Pzt,Çarşamba_19.00", "Salsa_Cuma_21.00"}, f.GetSheetList())
	name, err := f.GetCellValue("Salsa_Cuma_21.00", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Veli", name)

	again, err := ExportClassesPerGroup(dir, classes[:1], today)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "15-01-2024 - Salsa (1).xlsx")}, again)

	none, err := ExportClassesPerGroup(t.TempDir(), classes[1:2], today)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := ClassSheet{Name: "Latin Dans Başlangıç Grubu", Days: "Pzt,Çarşamba", Hour: "19.00"}
	a := sheetName(long, used)
	b := sheetName(long, used)
	assert.LessOrEqual(t, len([]rune(a)), 31)
	assert.LessOrEqual(t, len([]rune(b)), 31)
	assert.NotEqual(t, a, b)

	assert.Equal(t, "A-B_Pzt_19-00", sheetName(ClassSheet{Name: "A/B", Days: "Pzt", Hour: "19:00"}, used))
}

func TestExportLedger(t *testing.T) {
	dir := t.TempDir()
	rows := []models.LedgerRow{
		{Name: "Ali", Amount: decimal.RequireFromString("1000"), PaymentMethod: "NAKİT"},
		{Name: "Veli", Amount: decimal.RequireFromString("500"), PaymentMethod: "EFT"},
	}
	old := decimal.RequireFromString("250")
	path, err := ExportLedger(dir, rows, old, services.CashTotal(rows, old), today)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	label, _ := f.GetCellValue("Kasa", "A6")
	total, _ := f.GetCellValue("Kasa", "B6")
	assert.Equal(t, "TOPLAM", label)
	assert.Equal(t, "1250", total)
}

func TestFindCol(t *testing.T) {
	header := []string{"NUMARA", "ADI SOYADI", "TELEFON", "BAŞLANGIÇ TARİHİ", "ÖDEME TARİHİ", "KALAN GÜN"}
	assert.Equal(t, 1, findCol(header, nameHeaders...))
	assert.Equal(t, 2, findCol(header, phoneHeaders...))
	assert.Equal(t, 3, findCol(header, startHeaders...))
	assert.Equal(t, 4, findCol(header, endHeaders...))

	assert.Equal(t, 0, findCol([]string{"Öğrenci Adı"}, nameHeaders...), "substring fallback")
	assert.Equal(t, -1, findCol([]string{"Tutar"}, nameHeaders...))
}

func TestCellDate(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"45292", "2024-01-01", "01.01.2024", "01-01-2024 00:00:00"} {
		got, ok := cellDate(in)
		require.True(t, ok, in)
		assert.Equal(t, jan1, got, in)
	}
	got, ok := cellDate("12/31/2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), got)

	for _, in := range []string{"", "nan", "yarın"} {
		_, ok := cellDate(in)
		assert.False(t, ok, in)
	}
}

type fakeEnroller struct {
	got  []services.EnrollInput
	fail string
}

func (f *fakeEnroller) Enroll(in services.EnrollInput, _ time.Time) (models.Student, error) {
	if in.Name == f.fail {
		return models.Student{}, errors.New("boom")
	}
	f.got = append(f.got, in)
	return models.Student{Name: in.Name}, nil
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Adı Soyadı", "Telefon", "Başlangıç Tarihi", "Ödeme Tarihi"},
		{"Ali", "05301112233", "2024-01-01", "2024-01-29"},
		{"Veli", "", "", "29.01.2024"},
		{"", "5551112233", "", ""},
		{"Bozuk", "", "", ""},
		{"Ayşe", "", "01.01.2024", ""},
		{"Zeynep", "", "", ""},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	_, err := f.NewSheet("Boş")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Boş", "A1", "Tutar"))
	require.NoError(t, f.SetCellValue("Boş", "A2", "100"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportStudents(t *testing.T) {
	enr := &fakeEnroller{fail: "Bozuk"}
	res, err := ImportStudents(workbook(t), nil, 7, enr, today)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Imported)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "'Bozuk' eklenemedi")
	assert.Contains(t, res.Errors[1], "[Boş]")

	byName := map[string]services.EnrollInput{}
	for _, in := range enr.got {
		assert.EqualValues(t, 7, in.ClassInstanceID)
		byName[in.Name] = in
	}
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan29 := time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "05301112233", byName["Ali"].Phone)
	assert.Equal(t, jan1, byName["Ali"].Start)
	assert.Equal(t, jan29, *byName["Ali"].End)
	assert.Equal(t, jan1, byName["Veli"].Start, "start derived from end")
	assert.Equal(t, jan29, *byName["Ayşe"].End, "end derived from start")
	assert.Equal(t, today, byName["Zeynep"].Start)
	assert.Equal(t, today.AddDate(0, 0, 28), *byName["Zeynep"].End)
}

func TestImportStudents_BadFile(t *testing.T) {
	_, err := ImportStudents(bytes.NewBufferString("not a workbook"), nil, 1, &fakeEnroller{}, today)
	assert.Error(t, err)
}
