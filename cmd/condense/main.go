package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/config"
	"github.com/hpungsan/condense/internal/db"
	"github.com/hpungsan/condense/internal/lock"
	"github.com/hpungsan/condense/internal/mcp"
	"github.com/hpungsan/condense/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"track": true, "status": true, "compress": true, "recompress": true,
	"list": true, "show": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  condense - incremental versioned compression of conversation logs

  Usage: condense <command> [options]
         condense --help

  MCP server mode requires piped input.`)
}

// buildEnv assembles the operation environment: manifest store, lock manager,
// and the compactor (API-backed when a key is configured, heuristic otherwise).
func buildEnv(baseDir string, cfg *config.Config) (*ops.Env, func(), error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	var compactor compact.Compactor = compact.NewHeuristic()
	if key := os.Getenv(cfg.APIKeyEnv); key != "" {
		compactor = compact.NewSummarizer(key, cfg.DefaultModel)
	}

	env := &ops.Env{
		Store:     db.NewStore(database),
		Locks:     lock.NewManager(),
		Compactor: compactor,
		Cfg:       cfg,
		BaseDir:   baseDir,
	}
	return env, func() { database.Close() }, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
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

	baseDir := filepath.Join(homeDir, ".condense")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = homeDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	env, closeEnv, err := buildEnv(baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeEnv()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'condense --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
