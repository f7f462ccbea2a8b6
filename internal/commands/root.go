package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/config"
	"github.com/balkashynov/clockin/internal/db"
	"github.com/balkashynov/clockin/internal/insights"
	"github.com/balkashynov/clockin/internal/tracker"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds the services commands run against. It is opened lazily so
// help and version never touch the database.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfg       config.Config
	logger    *slog.Logger
	store     *db.DB
	machine   *tracker.Machine
	projector *insights.Projector
	loc       *time.Location
	now       func() time.Time
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, now: time.Now}
}

// loadConfig reads the environment once
func (a *app) loadConfig() error {
	if a.logger != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.loc = loc
	a.logger = config.NewLogger(cfg, a.errOut)
	return nil
}

// open initializes the database and the services on top of it
func (a *app) open() error {
	if a.store != nil {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}

	store, err := db.Open(db.Options{
		Path:        a.cfg.DBPath,
		BusyTimeout: a.cfg.BusyTimeout,
		TxRetries:   a.cfg.TxRetries,
		PinCost:     a.cfg.PinCost,
		Debug:       a.cfg.IsDebug(),
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}

	mode := tracker.EmployeeMode
	if a.cfg.RoleMode() {
		mode = tracker.RoleMode
	}
	a.store = store
	a.machine = tracker.New(store, store, store, store, mode,
		tracker.WithLogger(a.logger),
		tracker.WithClock(a.now))
	a.projector = insights.New(store, a.loc)
	a.logger.Debug("database opened", "path", a.cfg.DBPath, "mode", mode.String())
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
	a.store = nil
}

// withApp wraps a command function to open the database first
func (a *app) withApp(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return err
		}
		err := fn(cmd.Context(), cmd, args)
		if err != nil && !tracker.IsExpected(err) && !errors.Is(err, errUsage) {
			a.logger.Error("command failed", "command", cmd.CommandPath(), "error", err)
		}
		return err
	}
}

// errUsage marks errors caused by bad flags or arguments
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clockin",
		Short: "A CLI time clock for shift work",
		Long: `clockin records who worked on which job and when.
Clock in and out, take interruptions that pause the current job, tag what
you did, and read back hours and patterns, all from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	rootCmd.AddCommand(newStartCmd(a))
	rootCmd.AddCommand(newStopCmd(a))
	rootCmd.AddCommand(newInterruptCmd(a))
	rootCmd.AddCommand(newResumeCmd(a))
	rootCmd.AddCommand(newSwitchCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newTagsCmd(a))
	rootCmd.AddCommand(newSessionsCmd(a))
	rootCmd.AddCommand(newInsightsCmd(a))
	rootCmd.AddCommand(newTimesheetCmd(a))
	rootCmd.AddCommand(newJobsCmd(a))
	rootCmd.AddCommand(newTagCmd(a))
	rootCmd.AddCommand(newAdminCmd(a))
	rootCmd.SetHelpCommand(newHelpCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))
	return rootCmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "clockin %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// run executes one command line and releases the database afterwards
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := newApp(out, errOut)
	defer a.close()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// Execute runs the root command
func Execute() error {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}
