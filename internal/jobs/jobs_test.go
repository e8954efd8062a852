package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/dancestudio/internal/bot"
	"github.com/lojf/dancestudio/internal/db"
	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

type sent struct{ to []string }

func (s *sent) Send(_ context.Context, phone, _ string) error {
	s.to = append(s.to, phone)
	return nil
}

func newStudio(t *testing.T, sender bot.Sender) *Studio {
	t.Helper()
	dir := t.TempDir()
	gdb, err := db.Open(filepath.Join(dir, "studio.db"), db.Options{})
	require.NoError(t, err)

	return &Studio{
		DB:        gdb,
		Registry:  services.NewRegistry(gdb, nil),
		Students:  services.NewStudents(gdb, nil),
		Billing:   services.NewBilling(gdb),
		Sender:    sender,
		ExportDir: filepath.Join(dir, "Dersler"),
		LedgerDir: filepath.Join(dir, "hesap"),
		BackupDir: filepath.Join(dir, "yedek"),
		Today:     func() time.Time { return time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC) },
	}
}

func TestEndOfDay(t *testing.T) {
	s := newStudio(t, &sent{})
	inst, err := s.Registry.AddInstance(services.AddInstanceInput{Name: "Salsa", Weekdays: schedule.Of(0, 2), Time: "19.00"})
	require.NoError(t, err)
	_, err = s.Students.Enroll(services.EnrollInput{ClassInstanceID: inst.ID, Name: "Ali", Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, s.Today())
	require.NoError(t, err)
	require.NoError(t, s.Billing.ReplaceAll([]models.LedgerRow{{Name: "Ali", Amount: decimal.NewFromInt(1000), PaymentMethod: "NAKİT"}}))

	sum, err := s.EndOfDay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Recomputed.Updated)
	assert.Equal(t, "29-01-2024.xlsx", filepath.Base(sum.ClassesFile))
	assert.Equal(t, "29-01-2024.xlsx", filepath.Base(sum.LedgerFile))
	assert.Equal(t, "dance_school2024-01-29.db", filepath.Base(sum.BackupFile))
	for _, p := range []string{sum.ClassesFile, sum.LedgerFile, sum.BackupFile} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEndOfDay_EmptyStudio(t *testing.T) {
	s := newStudio(t, &sent{})
	sum, err := s.EndOfDay(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.ClassesFile)
	assert.Empty(t, sum.LedgerFile)
	assert.NotEmpty(t, sum.BackupFile)
}

func TestStartup_FixesStaleBalances(t *testing.T) {
	s := newStudio(t, &sent{})
	inst, err := s.Registry.AddInstance(services.AddInstanceInput{Name: "Salsa", Weekdays: schedule.Of(0, 2), Time: "19.00"})
	require.NoError(t, err)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st, err := s.Students.Enroll(services.EnrollInput{ClassInstanceID: inst.ID, Name: "Ali", Start: start}, start)
	require.NoError(t, err)
	// left over from a run weeks ago
	require.NoError(t, s.DB.Model(&models.Student{}).Where("id = ?", st.ID).UpdateColumn("sessions_remaining", 8).Error)

	res := s.Startup()
	assert.Equal(t, 1, res.Updated)
	got, err := s.Students.Get(st.ID)
	require.NoError(t, err)
	// every session before Mon 29 Jan has passed
	assert.Equal(t, 0, got.SessionsRemaining)
}

func TestReminders(t *testing.T) {
	out := &sent{}
	s := newStudio(t, out)
	inst, err := s.Registry.AddInstance(services.AddInstanceInput{Name: "Salsa", Weekdays: schedule.Of(0, 2), Time: "19.00"})
	require.NoError(t, err)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.Students.Enroll(services.EnrollInput{ClassInstanceID: inst.ID, Name: "Ali", Phone: "5301112233", Start: start}, start)
	require.NoError(t, err)
	_, err = s.Students.Enroll(services.EnrollInput{ClassInstanceID: inst.ID, Name: "Veli", Start: start.AddDate(0, 0, 1)}, start)
	require.NoError(t, err)

	rep, err := s.Reminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Due)
	assert.Equal(t, []string{"+905301112233"}, out.to)
}

func TestStart_BadSpec(t *testing.T) {
	s := newStudio(t, &sent{})
	_, err := Start(s, Schedule{EndOfDay: "not a cron spec"})
	assert.Error(t, err)

	c, err := Start(s, Schedule{EndOfDay: "30 22 * * *", Reminders: "0 10 * * *"})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
	<-c.Stop().Done()
}
