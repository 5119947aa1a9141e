package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/source"
)

const Version = "0.3.0"

// A Command is one reporting tool.
type Command interface {
	Shared() *SharedArgs
	Summary() []string

	// Register the options
	Add(c *CLI)

	// Rewrite the raw arguments before parsing, for options with optional values
	Preprocess(args []string) []string

	// Positional arguments, if any
	SetRestArguments(args []string) error

	// Apply defaults and check the options; errors are ToolErrors
	Validate() error

	FormatHelp(out io.Writer)
	Dump(info *Info)

	Run(ctx context.Context, loader source.Loader, out io.Writer) error
}

type Driver struct {
	Stdout io.Writer
	Stderr io.Writer
	Open   func(ctx context.Context, uri, cluster string) (source.Loader, error)

	// Defaults to the terminal width of stdout
	Width int
}

// Main runs cmd with the process arguments (without the program name) and returns the exit code.
func Main(cmd Command, args []string) int {
	d := &Driver{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Open:   OpenSource,
	}
	return d.Main(cmd, args)
}

func (d *Driver) Main(cmd Command, args []string) int {
	shared := cmd.Shared()
	Log.SetPrefix(shared.Tool)
	LoadIniFile(IniFilename())

	c := NewCLI(shared.Tool)
	cmd.Add(c)
	if err := c.Parse(cmd.Preprocess(args)); err != nil {
		return d.report(shared.Tool, NewInvalidArgument("%v", err))
	}

	switch {
	case shared.Help || shared.Usage:
		width := d.Width
		if width == 0 {
			width = TerminalWidth(os.Stdout)
		}
		c.PrintUsage(d.Stdout, cmd.Summary(), width)
		return 0
	case shared.Version:
		fmt.Fprintf(d.Stdout, "%s %s\n", shared.Tool, Version)
		return 0
	case shared.HelpFormat:
		cmd.FormatHelp(d.Stdout)
		return 0
	}

	if rest := c.Args(); len(rest) > 0 {
		if err := cmd.SetRestArguments(rest); err != nil {
			return d.report(shared.Tool, err)
		}
	}
	SetVerbosity(int(shared.Verbose))
	if err := cmd.Validate(); err != nil {
		return d.report(shared.Tool, err)
	}
	// -v -v dumps the effective options
	if shared.Verbose > 1 {
		info := NewInfo()
		cmd.Dump(info)
		info.Write(d.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loader, err := d.Open(ctx, shared.Source, shared.Cluster)
	if err != nil {
		return d.report(shared.Tool, err)
	}
	defer loader.Close()

	err = cmd.Run(ctx, loader, d.Stdout)
	if ctx.Err() != nil {
		// SIGINT
		return 0
	}
	return d.report(shared.Tool, err)
}

func (d *Driver) report(tool string, err error) int {
	if err == nil {
		return 0
	}
	te := AsToolError(err)
	fmt.Fprintf(d.Stderr, "%s: %v\n", tool, err)
	if te.IsUsage() {
		fmt.Fprintf(d.Stderr, "Try \"%s --help\" for more information\n", tool)
	}
	return te.ExitCode()
}
