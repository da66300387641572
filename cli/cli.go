// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the QuestFlow sandbox.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/questflow/sandbox"
	"github.com/nathoo/questflow/types"
)

// CLI handles line-oriented terminal interaction.
type CLI struct {
	Session   *sandbox.Session
	Meta      *Meta
	In        io.Reader
	Out       io.Writer
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given session. A nil store saves JSON
// files under saveDir.
func New(s *sandbox.Session, saveDir string, store SlotStore) *CLI {
	return &CLI{
		Session: s,
		Meta:    &Meta{Session: s, SaveDir: saveDir, Store: store},
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run starts the loop. It shows the intro, begins the session and
// describes the starting area, then loops: prompt → input → dispatch →
// output.
func (c *CLI) Run() {
	game := c.Session.Defs.Game
	if game.Intro != "" {
		c.printLine(game.Intro)
		c.printLine("")
	}
	c.printResult(c.Session.Begin())
	for _, line := range c.Session.Look() {
		c.printLine(line)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			lines, quit := c.Meta.Handle(input)
			for _, line := range lines {
				if strings.HasPrefix(input, "/help") {
					c.printLine(line)
				} else {
					c.printSystem(line)
				}
			}
			if quit {
				return
			}
			continue
		}

		// "again" / "g" repeats the last command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Session.Step(input)
		c.printResult(result)

		if c.Session.Tracing() {
			for _, line := range FormatTrace(result) {
				c.printSystem(line)
			}
		}
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
