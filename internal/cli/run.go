// Package cli implements the harnesskit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/internal/config"
)

// Run is the main entry point. Returns exit code.
//
// args includes the program name. A value on sigCh cancels the running
// command; nil disables signal handling.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("harnesskit", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	var (
		workDir     = globals.StringP("cwd", "C", "", "Run as if started in `dir`")
		configPath  = globals.StringP("config", "c", "", "Use specified config `file`")
		logLevel    = globals.String("log-level", "", "Log `level`: debug, info, warn, error")
		artifactDir = globals.String("artifact-dir", "", "Write crash inputs to `dir`")
		scratchDir  = globals.String("work-dir", "", "Create filesystem harness trees under `dir`")
		help        = globals.BoolP("help", "h", false, "Show help")
	)

	if len(args) == 0 {
		args = []string{"harnesskit"}
	}

	err := globals.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, nil)

		return 1
	}

	rest := globals.Args()

	if *help || len(rest) == 0 {
		printUsage(out, globals, nil)

		return 0
	}

	var overrides config.Overrides

	if globals.Changed("log-level") {
		overrides.LogLevel = logLevel
	}

	if globals.Changed("artifact-dir") {
		overrides.ArtifactDir = artifactDir
	}

	if globals.Changed("work-dir") {
		overrides.WorkDir = scratchDir
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		Overrides:       overrides,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	log := newLogger(cfg.LogLevel, errOut)
	defer func() { _ = log.Sync() }()

	commands := allCommands(&cfg, env, log)

	name := rest[0]

	cmd, ok := findCommand(commands, name)
	if !ok {
		fprintln(errOut, "error: unknown command:", name)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(in, out, errOut)

	code := cmd.Run(ctx, o, rest[1:])
	if code != 0 {
		return code
	}

	return o.Finish()
}

func findCommand(commands []*Command, name string) (*Command, bool) {
	for _, c := range commands {
		if c.Name() == name {
			return c, true
		}
	}

	return nil, false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, "harnesskit - replay, mutate and inspect fuzz inputs")
	fprintln(w)
	fprintln(w, "Usage: harnesskit [global flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")

	var buf strings.Builder

	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})
	_, _ = io.WriteString(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	if commands == nil {
		defaults := config.DefaultConfig()
		commands = allCommands(&defaults, nil, zap.NewNop())
	}

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}

// errDefectsFound makes run exit 1 after reporting its findings.
var errDefectsFound = errors.New("defects found")
