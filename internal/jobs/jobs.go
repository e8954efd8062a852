package jobs

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/lojf/dancestudio/internal/bot"
	"github.com/lojf/dancestudio/internal/db"
	"github.com/lojf/dancestudio/internal/services"
	"github.com/lojf/dancestudio/internal/sheets"
)

// Studio bundles what the scheduled jobs touch.
type Studio struct {
	DB        *gorm.DB
	Registry  *services.Registry
	Students  *services.Students
	Billing   *services.Billing
	Sender    bot.Sender
	ExportDir string
	LedgerDir string
	BackupDir string
	Today     func() time.Time
}

type Summary struct {
	ClassesFile string
	LedgerFile  string
	BackupFile  string
	Recomputed  services.RecomputeResult
}

// Export writes the class workbook and the ledger sheet for today. Either
// path is empty when there was nothing to write. Both exports are attempted;
// the first error is returned.
func (s *Studio) Export() (classesFile, ledgerFile string, err error) {
	var first error
	keep := func(err error, step string) {
		if err != nil && first == nil {
			first = errors.Wrap(err, step)
		}
	}
	today := s.Today()

	classes, err := sheets.Collect(s.Registry, s.Students)
	keep(err, "collect classes")
	if err == nil {
		path, ok, err := sheets.ExportClasses(s.ExportDir, classes, today)
		keep(err, "export classes")
		if ok {
			classesFile = path
		}
	}

	rows, err := s.Billing.Rows()
	keep(err, "load ledger")
	old, err2 := s.Billing.OldCash()
	keep(err2, "load old cash")
	if err == nil && err2 == nil && len(rows) > 0 {
		ledgerFile, err = sheets.ExportLedger(s.LedgerDir, rows, old, services.CashTotal(rows, old), today)
		keep(err, "export ledger")
	}
	return classesFile, ledgerFile, first
}

// ExportPerGroup writes a separate class workbook for each group into
// ExportDir.
func (s *Studio) ExportPerGroup() ([]string, error) {
	classes, err := sheets.Collect(s.Registry, s.Students)
	if err != nil {
		return nil, errors.Wrap(err, "collect classes")
	}
	paths, err := sheets.ExportClassesPerGroup(s.ExportDir, classes, s.Today())
	return paths, errors.Wrap(err, "export classes")
}

// Backup copies the live database into BackupDir under today's name.
func (s *Studio) Backup() (string, error) {
	return db.Backup(s.DB, s.BackupDir, s.Today())
}

// Startup brings every balance up to today, since the process may have been
// down across class days. A failure is logged and the server still starts.
func (s *Studio) Startup() services.RecomputeResult {
	res, err := s.Students.RecomputeAllBalances(s.Today())
	if err != nil {
		log.Printf("[startup] recompute: %v", err)
		return res
	}
	log.Printf("[startup] recomputed=%d skipped=%d", res.Updated, res.Skipped)
	return res
}

// EndOfDay refreshes balances, exports, then writes a database copy. Each
// step runs even if an earlier one failed; the first error is returned.
func (s *Studio) EndOfDay(ctx context.Context) (Summary, error) {
	var sum Summary
	var first error
	keep := func(err error, step string) {
		if err == nil {
			return
		}
		log.Printf("[eod] %s: %v", step, err)
		if first == nil {
			first = errors.Wrap(err, step)
		}
	}

	res, err := s.Students.RecomputeAllBalances(s.Today())
	sum.Recomputed = res
	keep(err, "recompute")

	sum.ClassesFile, sum.LedgerFile, err = s.Export()
	keep(err, "export")
	if ctx.Err() != nil {
		return sum, ctx.Err()
	}

	if s.BackupDir != "" {
		sum.BackupFile, err = s.Backup()
		keep(err, "backup")
	}

	log.Printf("[eod] done classes=%q ledger=%q backup=%q recomputed=%d skipped=%d",
		sum.ClassesFile, sum.LedgerFile, sum.BackupFile, res.Updated, res.Skipped)
	return sum, first
}

// Reminders messages everyone whose payment date is today.
func (s *Studio) Reminders(ctx context.Context) (bot.Report, error) {
	rep, err := bot.SendDueReminders(ctx, s.Students, s.Sender, s.Today())
	if err != nil {
		return rep, err
	}
	log.Printf("[reminders] due=%d sent=%d skipped=%d failed=%d", rep.Due, rep.Sent, rep.Skipped, rep.Failed)
	return rep, nil
}

// Schedule holds the cron specs; an empty spec disables that job.
type Schedule struct {
	EndOfDay  string
	Reminders string
	Location  *time.Location
}

// Start registers the jobs and starts the scheduler. A run that is still
// going when the next one is due is skipped; a missed minute while the
// process is down is simply lost.
func Start(s *Studio, sch Schedule) (*cron.Cron, error) {
	loc := sch.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if sch.EndOfDay != "" {
		if _, err := c.AddFunc(sch.EndOfDay, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
			defer cancel()
			_, _ = s.EndOfDay(ctx)
		}); err != nil {
			return nil, errors.Wrapf(err, "end of day schedule %q", sch.EndOfDay)
		}
	}
	if sch.Reminders != "" {
		if _, err := c.AddFunc(sch.Reminders, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
			defer cancel()
			if _, err := s.Reminders(ctx); err != nil {
				log.Printf("[reminders] %v", err)
			}
		}); err != nil {
			return nil, errors.Wrapf(err, "reminder schedule %q", sch.Reminders)
		}
	}

	log.Printf("[jobs] started eod=%q reminders=%q tz=%s", sch.EndOfDay, sch.Reminders, loc)
	c.Start()
	return c, nil
}
