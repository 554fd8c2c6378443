package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opoerator/drophub/internal/config"
	"github.com/opoerator/drophub/internal/db"
	"github.com/opoerator/drophub/internal/hub"
	"github.com/opoerator/drophub/internal/hydrate"
	"github.com/opoerator/drophub/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"drop": true, "list": true, "read": true,
	"hydrate": true, "api": true, "scan": true,
	"links": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags (--verbose, --help, --version) → CLI
	return len(arg) > 1 && arg[0] == '-'
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _                 _           _
    __| |_ __ ___  _ __ | |__  _   _| |__
   / _' | '__/ _ \| '_ \| '_ \| | | | '_ \
  | (_| | | | (_) | |_) | | | | |_| | |_) |
   \__,_|_|  \___/| .__/|_| |_|\__,_|_.__/
                  |_|

  Agent context from your drops

  Usage: drophub <command> [options]
         drophub --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Handle --help/--version before any setup
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(&deps{logger: logger, level: level, out: os.Stdout, in: os.Stdin})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".drophub")

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg = config.ApplyEnv(cfg, os.Getenv, config.ReadEnvFiles(config.DefaultEnvFiles()...))

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	// The link journal is optional; hydration and capture work without it.
	database, err := db.Init(baseDir)
	if err != nil {
		logger.Warn("link journal unavailable", "error", err)
		database = nil
	} else {
		defer database.Close()
	}

	d := newDeps(cfg, database, logger)
	d.level = level
	defer d.agg.Close()

	// CLI mode: known subcommand
	if isCLIMode(os.Args) {
		app := newCLIApp(d)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'drophub --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	h := mcp.NewHandlers(d.agg, d.client, cfg, logger)
	if err := mcp.Run(h, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// deps carries everything commands need.
type deps struct {
	cfg    *config.Config
	db     *sql.DB     // nil when the journal could not be opened
	client *hub.Client // nil when the hub is not configured
	agg    *hydrate.Aggregator
	logger *slog.Logger
	level  *slog.LevelVar
	out    io.Writer
	in     io.Reader
}

// newDeps wires the hub client, link journal and aggregator from cfg.
func newDeps(cfg *config.Config, database *sql.DB, logger *slog.Logger) *deps {
	d := &deps{
		cfg:    cfg,
		db:     database,
		logger: logger,
		out:    os.Stdout,
		in:     os.Stdin,
	}

	opts := hydrate.Options{
		DropPaths:       cfg.DropPaths,
		CheckpointPath:  cfg.CheckpointPath,
		MaxDropAge:      cfg.MaxDropAge(),
		MaxDrops:        cfg.MaxDrops,
		CacheTTL:        cfg.CacheTTL(),
		CaptureEnabled:  cfg.CaptureEnabled,
		CaptureChannels: cfg.CaptureChannels,
		Logger:          logger,
	}
	if client, ok := hub.New(cfg.HubURL, cfg.APIKey,
		hub.WithUserID(cfg.UserID),
		hub.WithTimeout(cfg.RequestTimeout()),
		hub.WithLogger(logger),
	); ok {
		d.client = client
		opts.Remote = client
	}
	if database != nil {
		opts.Links = &db.Journal{DB: database}
	}
	d.agg = hydrate.New(opts)
	return d
}
