package cli

import (
	"errors"
	"flag"

	ini "github.com/lars-t-hansen/ini"

	. "github.com/SchedMD/slurm-sub064/common"
)

// SharedArgs are the options and defaults common to the tools.  Tool is the name used for the
// environment variables (SQUEUE_..., SINFO_...).
type SharedArgs struct {
	Tool string

	All      bool
	Hide     bool
	NoHeader bool
	Long     bool
	Iterate  int

	Format     string
	FormatLong string
	Sort       string

	Partitions List
	States     List
	Users      List
	Nodes      string

	Verbose    Counter
	Version    bool
	Help       bool
	Usage      bool
	HelpFormat bool

	Source  string
	Cluster string
}

func (s *SharedArgs) Add(c *CLI) {
	c.Group("application-control")
	c.BoolVar(&s.Help, "help", "", "Print this help and exit")
	c.BoolVar(&s.Usage, "usage", "", "Print this help and exit")
	c.BoolVar(&s.Version, "version", "V", "Print the version and exit")
	c.Var(&s.Verbose, "verbose", "v", "", "Print more diagnostics; twice also prints the effective options")
	c.IntVar(&s.Iterate, "iterate", "i", "SECONDS", "Print the report every SECONDS seconds; 0 means once")

	c.Group("output-format")
	c.BoolVar(&s.NoHeader, "noheader", "h", "Do not print a header line")
	c.BoolVar(&s.Long, "long", "l", "Report more of the available information")
	c.StringVar(&s.Format, "format", "o", "FORMAT", "Format specification, e.g. \"%.18i %9P %8j\"")
	c.StringVar(&s.FormatLong, "Format", "O", "LIST",
		"Long format specification, e.g. \"jobid:.18,partition:9,name\"")
	c.StringVar(&s.Sort, "sort", "S", "SPEC",
		"Sort order: field codes, each optionally prefixed by - (descending) or # (partition order)")
	c.BoolVar(&s.HelpFormat, "helpformat", "", "List the field codes and names for --format and --Format")

	c.Group("data-source")
	c.StringVar(&s.Source, "source", "", "URI",
		"Where the data come from: http(s)://slurmrestd, postgres://database, kafka://broker or a "+
			"directory of sonar files [default: $SLURMTAB_SOURCE or the config file]")
	c.StringVar(&s.Cluster, "cluster", "M", "NAME", "Cluster name, required for kafka and some databases")
}

// AddFilters registers the filters whose meaning is shared, in the tool's filter group.
func (s *SharedArgs) AddFilters(c *CLI, usersHelp string) {
	c.BoolVar(&s.All, "all", "a", "Show hidden partitions and their jobs")
	c.BoolVar(&s.Hide, "hide", "", "Do not show hidden partitions and their jobs (the default)")
	c.Var(&s.Partitions, "partition", "p", "LIST", "Comma separated list of partitions")
	c.FlagSet.Var(&s.Partitions, "partitions", "")
	c.Var(&s.States, "states", "t", "LIST", "Comma separated list of states, or \"all\"")
	c.FlagSet.Var(&s.States, "state", "")
	c.Var(&s.Users, "users", "u", "LIST", usersHelp)
	c.FlagSet.Var(&s.Users, "user", "")
	c.StringVar(&s.Nodes, "nodes", "n", "HOSTLIST", "Host list expression, e.g. \"node[01-04]\"")
	c.FlagSet.Var(stringValue{&s.Nodes}, "node", "")
}

type stringValue struct {
	p *string
}

func (v stringValue) String() string {
	if v.p == nil {
		return ""
	}
	return *v.p
}

func (v stringValue) Set(s string) error {
	*v.p = s
	return nil
}

var _ flag.Value = stringValue{}

// Resolve applies the lower configuration layers to what the command line left unset: the
// environment, then the config file.  formatField and sortField are the tool's config file fields.
func (s *SharedArgs) Resolve(formatField, sortField *ini.Field) error {
	if s.Format != "" && s.FormatLong != "" {
		return NewIncompatible("--format and --Format are mutually exclusive")
	}
	if s.Format == "" && s.FormatLong == "" {
		if v, ok := Getenv(s.Tool, "FORMAT"); ok {
			s.Format = v
		} else if v, ok := Getenv(s.Tool, "FORMAT2"); ok {
			s.FormatLong = v
		} else {
			ApplyDefault(&s.Format, formatField)
		}
	}
	Layer(&s.Sort, s.Tool, sortField, "SORT")
	if !s.All && !s.Hide {
		if _, ok := Getenv(s.Tool, "ALL"); ok {
			s.All = true
		}
	}
	if s.Hide {
		s.All = false
	}
	LayerList(&s.Partitions, s.Tool, "PARTITION")
	LayerList(&s.States, s.Tool, "STATES")
	LayerList(&s.Users, s.Tool, "USERS")
	if s.Source == "" {
		Layer(&s.Source, "SLURMTAB", DataSourceURI, "SOURCE")
	}
	if s.Cluster == "" {
		ApplyDefault(&s.Cluster, DataSourceCluster)
	}
	return nil
}

func (s *SharedArgs) Validate() error {
	var errs []error
	if s.Iterate < 0 {
		errs = append(errs, NewInvalidArgument("Invalid --iterate value: %d", s.Iterate))
	}
	if _, _, err := ClassifySource(s.Source); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *SharedArgs) Dump(info *Info) {
	info.Set("all", s.All)
	info.Set("format", s.Format)
	info.Set("Format", s.FormatLong)
	info.Set("iterate", s.Iterate)
	info.Set("long", s.Long)
	info.Set("no_header", s.NoHeader)
	info.Set("nodes", s.Nodes)
	info.Set("partitions", s.Partitions.String())
	info.Set("sort", s.Sort)
	info.Set("states", s.States.String())
	info.Set("users", s.Users.String())
	info.Set("verbose", int(s.Verbose))
	info.Set("source", s.Source)
	info.Set("cluster", s.Cluster)
}
