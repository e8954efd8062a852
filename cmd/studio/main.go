package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lojf/dancestudio/internal/bot"
	"github.com/lojf/dancestudio/internal/config"
	"github.com/lojf/dancestudio/internal/db"
	"github.com/lojf/dancestudio/internal/handlers"
	"github.com/lojf/dancestudio/internal/jobs"
	"github.com/lojf/dancestudio/internal/services"
	"github.com/lojf/dancestudio/internal/sheets"
	"github.com/lojf/dancestudio/internal/web"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:          "studio",
		Short:        "Dance studio roster: classes, students, attendance and payments",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("db", "", "sqlite database file")
	root.PersistentFlags().Bool("debug", false, "log every SQL statement")
	root.PersistentFlags().String("addr", "", "listen address for serve")
	_ = v.BindPFlag("db_path", root.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("addr", root.PersistentFlags().Lookup("addr"))
	_ = v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))

	load := func() (*handlers.App, config.Config, error) {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return nil, cfg, err
		}
		app, err := openApp(cfg)
		return app, cfg, err
	}

	root.AddCommand(
		serveCmd(load),
		recomputeCmd(load),
		exportCmd(load),
		importCmd(load),
		remindCmd(load),
		backupCmd(load),
	)
	return root
}

type loader func() (*handlers.App, config.Config, error)

// openApp opens the database and wires every service.
func openApp(cfg config.Config) (*handlers.App, error) {
	if err := db.Init(cfg.DBPath, db.Options{Debug: cfg.Debug}); err != nil {
		return nil, errors.Wrap(err, "db init")
	}
	gdb := db.Conn()
	return &handlers.App{
		Studio: &jobs.Studio{
			DB:        gdb,
			Registry:  services.NewRegistry(gdb, nil),
			Students:  services.NewStudents(gdb, services.NewHistory(cfg.UndoDepth)),
			Billing:   services.NewBilling(gdb),
			Sender:    bot.NewSender(cfg.WhatsAppAPI, cfg.WhatsAppPhoneID, cfg.WhatsAppToken),
			ExportDir: cfg.ExportDir,
			LedgerDir: cfg.LedgerDir,
			BackupDir: cfg.BackupDir,
			Today:     cfg.Today,
		},
		Attendance: services.NewAttendance(gdb),
	}, nil
}

func serveCmd(load loader) *cobra.Command {
	var noJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := load()
			if err != nil {
				return err
			}
			app.Startup()

			if !noJobs {
				sch := jobs.Schedule{EndOfDay: cfg.EODSchedule, Location: cfg.Location()}
				if cfg.RemindersEnabled {
					sch.Reminders = cfg.RemindSchedule
				}
				c, err := jobs.Start(app.Studio, sch)
				if err != nil {
					return err
				}
				defer func() { <-c.Stop().Done() }()
			}

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           web.Router(app),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shut, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shut)
			}()

			log.Printf("dance studio listening on %s", cfg.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "do not start the cron jobs")
	return cmd
}

func recomputeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute every student's remaining sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := load()
			if err != nil {
				return err
			}
			res, err := app.Students.RecomputeAllBalances(cfg.Today())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d, skipped %d (unreadable dates)\n", res.Updated, res.Skipped)
			return nil
		},
	}
}

func exportCmd(load loader) *cobra.Command {
	var perClass bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write today's class workbook and cash register sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := load()
			if err != nil {
				return err
			}
			if perClass {
				files, err := app.Studio.ExportPerGroup()
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), "classes:", f)
				}
				return err
			}
			classes, ledger, err := app.Studio.Export()
			if classes != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "classes:", classes)
			}
			if ledger != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ledger:", ledger)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&perClass, "per-class", false, "one workbook per class group instead of the combined one")
	return cmd
}

func importCmd(load loader) *cobra.Command {
	var classID uint
	var sheetNames []string
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Enroll the students of a workbook into a class instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := load()
			if err != nil {
				return err
			}
			if _, err := app.Registry.Instance(classID); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := sheets.ImportStudents(f, sheetNames, classID, app.Students, cfg.Today())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d students\n", res.Imported)
			for _, e := range res.Errors {
				fmt.Fprintln(out, " -", e)
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&classID, "class", 0, "class instance id")
	cmd.Flags().StringSliceVar(&sheetNames, "sheet", nil, "only these sheets (default all)")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func remindCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send payment reminders to students due today",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := load()
			if err != nil {
				return err
			}
			rep, err := app.Reminders(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "due %d, sent %d, skipped %d, failed %d\n", rep.Due, rep.Sent, rep.Skipped, rep.Failed)
			return nil
		},
	}
}

func backupCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the database into the backup folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := load()
			if err != nil {
				return err
			}
			path, err := app.Studio.Backup()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
