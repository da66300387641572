// QuestFlow runs quest definitions in an interactive sandbox.
// Usage: questflow [--version] [--plain] [--script <file>] [--trace] [--db <file>] [--saves <dir>] [--poll <seconds>] <game_directory>
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/nathoo/questflow/cli"
	"github.com/nathoo/questflow/config"
	"github.com/nathoo/questflow/loader"
	"github.com/nathoo/questflow/sandbox"
	"github.com/nathoo/questflow/storage/sqlite"
	"github.com/nathoo/questflow/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: questflow [--version] [--plain] [--script <file>] [--trace] [--db <file>] [--saves <dir>] [--poll <seconds>] <game_directory>"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var gameDir, scriptFile string
	args := os.Args[1:]
	next := func(i int, flag string) string {
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		return args[i+1]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("questflow %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			cfg.Plain = true
		case "--trace":
			cfg.Trace = true
		case "--script":
			scriptFile = next(i, "--script")
			i++
		case "--db":
			cfg.SaveDB = next(i, "--db")
			i++
		case "--saves":
			cfg.SaveDir = next(i, "--saves")
			i++
		case "--poll":
			v, err := strconv.ParseFloat(next(i, "--poll"), 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--poll: %v\n", err)
				os.Exit(1)
			}
			cfg.PollInterval = v
			i++
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}
	if gameDir == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, gameDir, scriptFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, gameDir, scriptFile string) error {
	defs, err := loader.Load(gameDir)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}

	useTUI := scriptFile == "" && !cfg.Plain && isTerminal()
	var logOut io.Writer = os.Stderr
	if useTUI {
		// Log lines would tear the alternate screen.
		logOut = io.Discard
	}

	s := sandbox.New(defs, sandbox.Options{
		PollInterval:   cfg.PollInterval,
		MaxSettleTicks: cfg.MaxSettleTicks,
		DayLength:      cfg.DayLength,
		WaitSeconds:    cfg.WaitSeconds,
		Logger:         log.New(logOut, "questflow: ", log.LstdFlags),
	})
	s.SetTrace(cfg.Trace)

	var store cli.SlotStore
	if cfg.SaveDB != "" {
		db, err := sqlite.Open(cfg.SaveDB)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	if useTUI {
		return tui.Run(s, &cli.Meta{Session: s, SaveDir: cfg.SaveDir, Store: store})
	}

	fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
	c := cli.New(s, cfg.SaveDir, store)
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	}
	c.Run()
	return nil
}

// isTerminal reports whether stdout is a terminal.
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
