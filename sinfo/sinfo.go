// Package sinfo implements the node and partition report: nodes are folded into rows of
// nodes that agree on the displayed attributes, one or more rows per partition.
package sinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SchedMD/slurm-sub064/cli"
	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
	"github.com/SchedMD/slurm-sub064/table"
)

type Params struct {
	cli.SharedArgs

	NodeOriented bool
	Dead         bool
	Responding   bool
	Reservation  string
	Summarize    bool
	Exact        bool

	// Set by Validate
	spec   table.FormatSpec
	keys   []table.SortKey
	filter *filter
	group  GroupOptions

	// For testing
	iterations int
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ cli.Command = (*Params)(nil)

func New() *Params {
	return &Params{
		SharedArgs: cli.SharedArgs{Tool: "sinfo"},
		sleep:      cli.SleepContext,
	}
}

func (p *Params) Shared() *cli.SharedArgs {
	return &p.SharedArgs
}

func (p *Params) Summary() []string {
	return []string{
		"Report the partitions and nodes, folding nodes in the same partition and state into one line.",
	}
}

func (p *Params) Add(c *cli.CLI) {
	p.SharedArgs.Add(c)
	c.Group("output-format")
	c.BoolVar(&p.NodeOriented, "Node", "N", "One line per node and partition")
	c.FlagSet.BoolVar(&p.NodeOriented, "node-oriented", false, "")
	c.BoolVar(&p.Summarize, "summarize", "s", "Summarize node states per partition as A/I/O/T")
	c.BoolVar(&p.Exact, "exact", "e", "Fold only nodes whose CPUs, memory, disk, weight and features all agree")

	c.Group("node-filter")
	p.SharedArgs.AddFilters(c, "Comma separated list of users who set node reasons")
	c.BoolVar(&p.Dead, "dead", "d", "Only nodes that are not responding")
	c.BoolVar(&p.Responding, "responding", "r", "Only nodes that are responding")
	c.StringVar(&p.Reservation, "reservation", "T", "NAME", "Only nodes in the reservation")
}

func (p *Params) Preprocess(args []string) []string {
	return args
}

func (p *Params) SetRestArguments(args []string) error {
	return NewInvalidArgument("Unrecognized option: %s", args[0])
}

func (p *Params) Validate() error {
	if err := p.Resolve(SinfoFormat, SinfoSort); err != nil {
		return err
	}
	if err := p.SharedArgs.Validate(); err != nil {
		return err
	}
	if p.Dead && p.Responding {
		return NewIncompatible("--dead and --responding are mutually exclusive")
	}
	if p.Summarize && p.NodeOriented {
		return NewIncompatible("--summarize and --Node are mutually exclusive")
	}

	var errs []error
	var err error
	p.spec, err = p.chooseFormat()
	errs = append(errs, err)

	sortSpec := p.Sort
	if sortSpec == "" {
		sortSpec = defaultSort
		if p.NodeOriented {
			sortSpec = defaultNodeOrientedSort
		}
	}
	p.keys, err = table.ParseSortSpec(sortSpec, func(c byte) bool {
		_, found := nodeFields.Lookup(c)
		return found
	})
	if err != nil {
		errs = append(errs, NewInvalidArgument("%v", err))
	}

	p.filter, err = p.compileFilter()
	errs = append(errs, err)

	p.group = GroupOptions{
		Codes:        p.spec.Codes(),
		State:        p.spec.Has('t') || p.spec.Has('T'),
		NodeOriented: p.NodeOriented,
		Exact:        p.Exact || p.Verbose > 0,
		ShowHidden:   p.All,
	}
	if len(p.Partitions.Items) > 0 {
		p.group.Partitions = make(map[string]bool)
		for _, name := range p.Partitions.Items {
			p.group.Partitions[name] = true
		}
	}
	return errors.Join(errs...)
}

func (p *Params) chooseFormat() (table.FormatSpec, error) {
	var spec table.FormatSpec
	switch {
	case p.FormatLong != "":
		var err error
		spec, err = table.ParseLongFormat(p.FormatLong, nodeFields.CodeForName)
		if err != nil {
			return nil, NewInvalidArgument("%v", err)
		}
	case p.Format != "":
		spec = table.ParseFormat(p.Format)
	case p.Summarize:
		spec = table.ParseFormat(defaultSummarizeFormat)
	case p.NodeOriented && p.Long:
		spec = table.ParseFormat(defaultNodeLongFormat)
	case p.NodeOriented:
		spec = table.ParseFormat(defaultNodeFormat)
	case p.Long:
		spec = table.ParseFormat(defaultLongFormat)
	default:
		spec = table.ParseFormat(defaultFormat)
	}
	if err := nodeFields.Validate(spec); err != nil {
		return nil, NewInvalidArgument("%v", err)
	}
	return spec, nil
}

func (p *Params) compileFilter() (*filter, error) {
	var errs []error
	f := &filter{
		dead:        p.Dead,
		responding:  p.Responding,
		reservation: p.Reservation,
	}
	if len(p.States.Items) > 0 {
		states, err := parseStates(p.States.Items)
		errs = append(errs, err)
		f.states = states
	}
	if len(p.Users.Items) > 0 {
		f.setUsers(p.Users.Items)
	}
	if p.Nodes != "" {
		expr, err := RewriteLocalhost(p.Nodes)
		if err != nil {
			errs = append(errs, NewInternal("Unable to get the local host name: %v", err))
		} else if f.nodes, err = hostlist.Parse(expr); err != nil {
			errs = append(errs, NewInvalidArgument("Invalid node name: %s", p.Nodes))
		}
	}
	return f, errors.Join(errs...)
}

func (p *Params) FormatHelp(out io.Writer) {
	fmt.Fprintln(out, "Fields:")
	for _, f := range nodeFields.Fields() {
		fmt.Fprintf(out, "  %%%c  %-18s %-16s %s\n", f.Code, f.Name, f.Header, f.Help)
	}
}

func (p *Params) Dump(info *cli.Info) {
	p.SharedArgs.Dump(info)
	info.Set("dead_nodes", p.Dead)
	info.Set("exact_match", p.Exact)
	info.Set("node_flag", p.NodeOriented)
	info.Set("reservation", p.Reservation)
	info.Set("responding_nodes", p.Responding)
	info.Set("summarize", p.Summarize)
	info.Set("format_spec", p.spec.String())
	keys := make([]string, len(p.keys))
	for i, k := range p.keys {
		keys[i] = k.String()
	}
	info.Set("sort_keys", strings.Join(keys, ","))
}

func (p *Params) Run(ctx context.Context, loader source.Loader, out io.Writer) error {
	var flags source.ShowFlags
	if p.All {
		flags |= source.ShowAll
	}
	if p.Long {
		flags |= source.ShowDetail
	}
	var nodes *slurm.NodeSnapshot
	loop := cli.Loop{
		Interval: time.Duration(p.Iterate) * time.Second,
		Limit:    p.iterations,
		Sleep:    p.sleep,
	}
	return loop.Run(ctx, out, func() (err error) {
		nodes, err = cli.Reload(ctx, nodes, func(since time.Time) (*slurm.NodeSnapshot, error) {
			return loader.LoadNodes(ctx, since, flags)
		}, func(s *slurm.NodeSnapshot) time.Time { return s.LastUpdate })
		if err != nil {
			return err
		}
		return p.report(out, nodes)
	})
}

func (p *Params) report(out io.Writer, snap *slurm.NodeSnapshot) error {
	rows := Group(snap, p.group, p.filter.node)
	table.SortStable(rows, p.keys, comparators())
	return table.Render(out, p.spec, nodeFields, rows, !p.NoHeader)
}
