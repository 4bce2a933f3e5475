package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/harnesskit/internal/config"
	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fs"
)

// ExploreCmd returns the explore command.
func ExploreCmd(cfg *config.Config, env map[string]string) *Command {
	return &Command{
		Flags: flag.NewFlagSet("explore", flag.ContinueOnError),
		Usage: "explore <file>",
		Short: "Interactively decode a file",
		Long: `Open an interactive prompt over a cursor positioned at the start of a file.
Each line is a decode op (see decode) or one of: pos, reset, help, quit.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: explore needs exactly one file", errUsage)
			}

			data, err := fs.NewReal().ReadFile(resolvePath(cfg, args[0]))
			if err != nil {
				return err
			}

			line := liner.NewLiner()
			defer line.Close()

			line.SetCtrlCAborts(true)
			line.SetCompleter(completeOp)

			history := historyFile(env)
			if history != "" {
				if f, err := os.Open(history); err == nil {
					_, _ = line.ReadHistory(f)
					_ = f.Close()
				}
			}

			err = explore(o, line, data)

			if history != "" {
				if f, err := os.Create(history); err == nil {
					_, _ = line.WriteHistory(f)
					_ = f.Close()
				}
			}

			return err
		},
	}
}

// prompter is the part of liner.State the loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func explore(o *IO, p prompter, data []byte) error {
	c := datasource.New(data)

	o.Printf("%d bytes. Type 'help' for ops.\n", len(data))

	for {
		line, err := p.Prompt(fmt.Sprintf("@%d> ", c.Position()))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p.AppendHistory(line)

		switch line {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			o.Println("ops:", strings.Join(opNames, " "))
			o.Println("also: pos, reset, quit")
		case "pos":
			o.Printf("position %d, remaining %d\n", c.Position(), c.Remaining())
		case "reset":
			c = datasource.New(data)
		default:
			for _, spec := range strings.Fields(line) {
				v, err := applyOp(c, spec)
				if err != nil {
					o.Println("error:", err)

					break
				}

				o.Printf("%s = %s\n", spec, v)
			}
		}
	}
}

func completeOp(line string) []string {
	var out []string

	for _, name := range append([]string{"pos", "reset", "help", "quit"}, opNames...) {
		name, _, _ = strings.Cut(name, "[")
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}

	return out
}

// historyFile returns ~/.harnesskit_history, or "" without a home.
func historyFile(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".harnesskit_history")
}
