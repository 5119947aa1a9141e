// Package cli holds the command line machinery shared by the reporting tools: GNU-style option
// parsing with option groups, layered defaults, data source selection and the top-level driver.

package cli

import (
	"cmp"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"rsc.io/getopt"
)

type CLI struct {
	*getopt.FlagSet
	name         string
	currentGroup string
	options      []*option
	seen         map[string]bool
}

type option struct {
	group string
	long  string
	short string
	arg   string // Metavariable, "" for booleans
	usage string
}

var (
	// All known groups *must* be here
	groupPriority = map[string]int{
		"application-control": 1,
		"output-format":       2,
		"job-filter":          3,
		"node-filter":         3,
		"data-source":         4,
	}
	groupTitle = map[string]string{
		"application-control": "Application control",
		"output-format":       "Output format",
		"job-filter":          "Job filtering",
		"node-filter":         "Node filtering",
		"data-source":         "Data source",
	}
)

func NewCLI(name string) *CLI {
	fs := getopt.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return &CLI{
		FlagSet: fs,
		name:    name,
		seen:    make(map[string]bool),
	}
}

// Call Group to tag subsequent options with the logical group they belong to, so that when help is
// printed, the options in the same group are presented together.

func (c *CLI) Group(name string) {
	if _, found := groupPriority[name]; !found {
		panic(fmt.Sprintf("Unknown group %s", name))
	}
	c.currentGroup = name
}

func (c *CLI) tag(long, short, arg, usage string) {
	if c.currentGroup == "" {
		panic(fmt.Sprintf("No option group set when registering option %s", long))
	}
	if c.seen[long] {
		panic(fmt.Sprintf("Option %s registered twice", long))
	}
	c.seen[long] = true
	c.options = append(c.options, &option{c.currentGroup, long, short, arg, usage})
}

func (c *CLI) alias(long, short string) {
	if short != "" {
		c.FlagSet.Alias(short, long)
	}
}

// The `short` name may be "" for long-only options.

func (c *CLI) BoolVar(v *bool, long, short string, usage string) {
	c.tag(long, short, "", usage)
	c.FlagSet.BoolVar(v, long, *v, usage)
	c.alias(long, short)
}

func (c *CLI) IntVar(v *int, long, short, arg string, usage string) {
	c.tag(long, short, arg, usage)
	c.FlagSet.IntVar(v, long, *v, usage)
	c.alias(long, short)
}

func (c *CLI) StringVar(v *string, long, short, arg string, usage string) {
	c.tag(long, short, arg, usage)
	c.FlagSet.StringVar(v, long, *v, usage)
	c.alias(long, short)
}

func (c *CLI) Var(value flag.Value, long, short, arg string, usage string) {
	c.tag(long, short, arg, usage)
	c.FlagSet.Var(value, long, usage)
	c.alias(long, short)
}

// PrintUsage prints the summary and the options by group, wrapping the descriptions to width.
func (c *CLI) PrintUsage(out io.Writer, summary []string, width int) {
	fmt.Fprintf(out, "Usage: %s [OPTIONS]\n\n", c.name)
	for _, s := range summary {
		fmt.Fprintf(out, "  %s\n", s)
	}
	groups := make([]string, 0)
	byGroup := make(map[string][]*option)
	for _, o := range c.options {
		if _, found := byGroup[o.group]; !found {
			groups = append(groups, o.group)
		}
		byGroup[o.group] = append(byGroup[o.group], o)
	}
	slices.SortStableFunc(groups, func(a, b string) int {
		return cmp.Compare(groupPriority[a], groupPriority[b])
	})
	for _, g := range groups {
		fmt.Fprintf(out, "\n%s:\n\n", groupTitle[g])
		for _, o := range byGroup[g] {
			var head strings.Builder
			head.WriteString("  ")
			if o.short != "" {
				fmt.Fprintf(&head, "-%s, ", o.short)
			} else {
				head.WriteString("    ")
			}
			fmt.Fprintf(&head, "--%s", o.long)
			if o.arg != "" {
				fmt.Fprintf(&head, "=%s", o.arg)
			}
			fmt.Fprintln(out, head.String())
			for _, l := range wrap(o.usage, width-8) {
				fmt.Fprintf(out, "        %s\n", l)
			}
		}
	}
}

func wrap(text string, width int) []string {
	if width < 20 {
		width = 20
	}
	lines := make([]string, 0)
	var line strings.Builder
	for _, w := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(w) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// OptionalArg rewrites the options in `names` (e.g. "-j", "--jobs") that may appear without a value
// into the "--long=value" form getopt understands: a following argument that does not look like
// an option is taken as the value, otherwise the value is empty.
func OptionalArg(args []string, long string, names ...string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		if !slices.Contains(names, a) {
			out = append(out, a)
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, "--"+long+"="+args[i+1])
			i++
		} else {
			out = append(out, "--"+long+"=")
		}
	}
	return out
}
