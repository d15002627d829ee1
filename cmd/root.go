// Package cmd implements the CLI command structure for tasklist.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/tasklist/internal/config"
	"github.com/nibzard/tasklist/internal/export"
	"github.com/nibzard/tasklist/internal/logging"
	"github.com/nibzard/tasklist/internal/shell"
	"github.com/nibzard/tasklist/internal/store"
	"github.com/nibzard/tasklist/internal/todo"
	"github.com/nibzard/tasklist/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries the process streams and clock shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func defaultApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

// Run executes the tasklist CLI.
func Run(ctx context.Context, args []string) error {
	return defaultApp().run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("tasklist", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		printUsage(fs, a.stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, a.stdout)
		return nil
	}
	if *showVersion {
		return a.versionCommand()
	}

	// Determine the subcommand; the interactive shell is the default.
	subcommand := "shell"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	// Commands that do not touch the store
	switch subcommand {
	case "version":
		return a.versionCommand()
	case "help":
		printUsage(fs, a.stdout)
		return nil
	case "config":
		return a.configCommand(cws, remainingArgs)
	}

	cfg := cws.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.NewFromConfig(a.stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)

	var command func(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error
	switch subcommand {
	case "shell":
		command = a.shellCommand
	case "today", "week", "all", "missed":
		command = a.viewCommand(subcommand)
	case "add":
		command = a.addCommand
	case "delete":
		command = a.deleteCommand
	case "tui":
		command = a.tuiCommand
	case "export":
		command = a.exportCommand
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, a.stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}

	list, closeStore, err := a.openList(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	return command(ctx, list, logger, remainingArgs)
}

// openList opens the configured store and wraps it in a List.
func (a *app) openList(ctx context.Context, cfg *config.Config, logger *log.Logger) (*todo.List, func(), error) {
	st, err := store.Open(ctx, store.Options{
		Driver: cfg.StoreDriver,
		Path:   cfg.StorePath,
		DSN:    cfg.StoreDSN,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("store opened", "driver", cfg.StoreDriver, "path", cfg.StorePath)

	closeStore := func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", "err", err)
		}
	}
	return todo.NewList(st, todo.WithClock(a.now)), closeStore, nil
}

func (a *app) newShell(list *todo.List, logger *log.Logger) *shell.Shell {
	return shell.New(list, a.stdin, a.stdout, shell.WithLogger(logger))
}

// shellCommand runs the interactive menu.
func (a *app) shellCommand(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return a.newShell(list, logger).Run(ctx)
}

// viewCommand prints one of the read-only views and exits.
func (a *app) viewCommand(name string) func(context.Context, *todo.List, *log.Logger, []string) error {
	return func(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unexpected arguments: %v", args)
		}
		sh := a.newShell(list, logger)
		switch name {
		case "today":
			return sh.ShowToday(ctx)
		case "week":
			return sh.ShowWeek(ctx)
		case "missed":
			return sh.ShowMissed(ctx)
		default:
			return sh.ShowAll(ctx)
		}
	}
}

// addCommand creates a task from the command line.
func (a *app) addCommand(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error {
	fs := newAddFlagSet(a.stderr)
	words, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	deadline := fs.Lookup("deadline").Value.String()
	description := strings.Join(words, " ")
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("usage: tasklist add DESCRIPTION [-deadline YYYY-MM-DD]")
	}

	task, err := list.Add(ctx, description, deadline)
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	logger.Info("task added", "id", task.ID, "deadline", task.Deadline)
	fmt.Fprintln(a.stdout, "The task has been added!")
	return nil
}

func newAddFlagSet(w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("tasklist add", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.String("deadline", "", "Deadline as YYYY-MM-DD (default today)")
	return fs
}

// deleteCommand deletes the task at position N of the "all" listing.
func (a *app) deleteCommand(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tasklist delete N (N as numbered by 'tasklist all')")
	}

	tasks, err := list.All(ctx)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.stdout, "Nothing to delete!")
		return nil
	}

	idx, err := todo.ParseSelection(args[0], len(tasks))
	if err != nil {
		return err
	}
	task := tasks[idx]
	if err := list.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("deleting task %d: %w", task.ID, err)
	}
	logger.Info("task deleted", "id", task.ID)
	fmt.Fprintln(a.stdout, "The task has been deleted!")
	return nil
}

// tuiCommand launches the TUI.
func (a *app) tuiCommand(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasklist tui", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	refresh := fs.Duration("refresh", ui.DefaultRefreshInterval, "How often to reload the view")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	logger.Debug("starting tui", "refresh", *refresh)
	return ui.RunTUI(ctx, list, ui.WithRefreshInterval(*refresh), ui.WithOutput(a.stdout))
}

// exportCommand writes every task as JSON, CSV or PDF.
func (a *app) exportCommand(ctx context.Context, list *todo.List, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasklist export", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	format := fs.String("format", "", "Output format: json, csv or pdf (default from -o extension, else json)")
	output := fs.String("o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	f := *format
	if f == "" {
		f = export.FormatFromPath(*output)
	}
	if f == "" {
		f = export.FormatJSON
	}
	f, err := export.ParseFormat(f)
	if err != nil {
		return err
	}
	if *output == "" && f == export.FormatPDF && ui.IsTTY(a.stdout) {
		return fmt.Errorf("refusing to write PDF to a terminal; use -o FILE")
	}

	exporter := export.NewExporter(list)
	if *output == "" {
		return exporter.Export(ctx, a.stdout, f)
	}

	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *output, err)
	}
	if err := exporter.Export(ctx, file, f); err != nil {
		file.Close()
		os.Remove(*output)
		return fmt.Errorf("exporting: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", *output, err)
	}
	logger.Info("exported tasks", "format", f, "path", *output)
	return nil
}

// configCommand prints the effective configuration with the source of each value.
func (a *app) configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("tasklist config", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	example := fs.Bool("example", false, "Print an example config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *example {
		fmt.Fprint(a.stdout, config.ExampleConfig())
		return nil
	}

	w := a.stdout
	fmt.Fprintln(w, "Config files:")
	if len(cws.Files) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Effective values:")
	for _, field := range config.Fields() {
		fmt.Fprintf(w, "  %-15s = %-30q (%s)\n", field, cws.Config.Value(field), cws.Sources[field])
	}
	fmt.Fprintln(w)

	if err := cws.Config.Validate(); err != nil {
		fmt.Fprintf(w, "Invalid: %v\n", err)
		return fmt.Errorf("invalid config: %w", err)
	}
	fmt.Fprintln(w, "OK")
	return nil
}

func (a *app) versionCommand() error {
	fmt.Fprintf(a.stdout, "tasklist version %s\n", Version)
	return nil
}

// parseInterleaved parses fs allowing flags after positional arguments and
// returns the positional arguments in order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		// Everything after a literal "--" is positional.
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Tasklist - a to-do list with deadlines")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tasklist [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  shell                 Interactive menu (default command)")
	fmt.Fprintln(w, "  today                 Show today's tasks")
	fmt.Fprintln(w, "  week                  Show the next seven days")
	fmt.Fprintln(w, "  all                   Show all tasks by deadline")
	fmt.Fprintln(w, "  missed                Show tasks past their deadline")
	fmt.Fprintln(w, "  add DESCRIPTION       Add a task (-deadline YYYY-MM-DD, default today)")
	fmt.Fprintln(w, "  delete N              Delete task N as numbered by 'all'")
	fmt.Fprintln(w, "  tui                   Launch terminal UI")
	fmt.Fprintln(w, "  export                Export tasks (-format json|csv|pdf, -o FILE)")
	fmt.Fprintln(w, "  config                Show effective configuration (-example for a sample file)")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w, "  help                  Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Drivers: %s\n", strings.Join(store.Drivers(), ", "))
	fmt.Fprintln(w, "Environment: TASKLIST_DRIVER, TASKLIST_DB, TASKLIST_DSN, TASKLIST_LOG_LEVEL,")
	fmt.Fprintln(w, "  TASKLIST_LOG_FORMAT, TASKLIST_LOG_TIMESTAMPS, TASKLIST_LOG_CALLER")
}
