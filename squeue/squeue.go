// Package squeue implements the job and step report.
package squeue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SchedMD/slurm-sub064/cli"
	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
	"github.com/SchedMD/slurm-sub064/table"
)

type Params struct {
	cli.SharedArgs

	Jobs         cli.List
	Steps        cli.List
	Accounts     cli.List
	QOS          cli.List
	Reservations cli.List
	Licenses     cli.List
	Names        cli.List
	Me           bool

	// Set by Validate
	stepMode bool
	spec     table.FormatSpec
	keys     []table.SortKey
	filter   *filter

	// For testing: the number of reports to produce before returning (0 means no limit), the
	// clock, and the pause between iterations.
	iterations int
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ cli.Command = (*Params)(nil)

func New() *Params {
	return &Params{
		SharedArgs: cli.SharedArgs{Tool: "squeue"},
		now:        time.Now,
		sleep:      cli.SleepContext,
	}
}

func (p *Params) Shared() *cli.SharedArgs {
	return &p.SharedArgs
}

func (p *Params) Summary() []string {
	return []string{
		"Report the jobs in the queue, or with --steps the job steps, one line per item.",
		"A trailing JOBLIST is the list for --jobs or --steps when those are given without one.",
	}
}

func (p *Params) Add(c *cli.CLI) {
	p.SharedArgs.Add(c)
	c.Group("job-filter")
	p.SharedArgs.AddFilters(c, "Comma separated list of user names or ids")
	c.Var(&p.Jobs, "jobs", "j", "LIST", "Comma separated list of job ids; with no list, all jobs")
	c.Var(&p.Steps, "steps", "s", "LIST",
		"Report job steps instead of jobs; LIST is comma separated job.step ids, with no list all steps")
	c.Var(&p.Accounts, "account", "A", "LIST", "Comma separated list of accounts")
	c.FlagSet.Var(&p.Accounts, "accounts", "")
	c.Var(&p.QOS, "qos", "q", "LIST", "Comma separated list of qualities of service")
	c.Var(&p.Reservations, "reservation", "R", "NAME", "Reservation name")
	c.Var(&p.Licenses, "licenses", "L", "LIST", "Comma separated list of license names")
	c.Var(&p.Names, "name", "", "LIST", "Comma separated list of job names")
	c.BoolVar(&p.Me, "me", "", "Same as --user=<your user name>")
}

func (p *Params) Preprocess(args []string) []string {
	args = cli.OptionalArg(args, "jobs", "-j", "--jobs")
	return cli.OptionalArg(args, "steps", "-s", "--steps")
}

// The positional argument is the job list for -j or the step list for -s, if one of those was
// given without a value.
func (p *Params) SetRestArguments(args []string) error {
	list := strings.Join(args, ",")
	switch {
	case p.Steps.IsSet() && len(p.Steps.Items) == 0:
		return p.Steps.Set(list)
	case p.Jobs.IsSet() && len(p.Jobs.Items) == 0:
		return p.Jobs.Set(list)
	default:
		return NewInvalidArgument("Unrecognized option: %s", args[0])
	}
}

func (p *Params) Validate() error {
	if err := p.Resolve(SqueueFormat, SqueueSort); err != nil {
		return err
	}
	cli.LayerList(&p.Accounts, p.Tool, "ACCOUNT")
	cli.LayerList(&p.QOS, p.Tool, "QOS")
	cli.LayerList(&p.Names, p.Tool, "NAMES")
	if err := p.SharedArgs.Validate(); err != nil {
		return err
	}
	if p.Jobs.IsSet() && p.Steps.IsSet() {
		return NewIncompatible("--jobs and --steps are mutually exclusive")
	}
	p.stepMode = p.Steps.IsSet()

	var errs []error
	var err error
	if p.stepMode {
		p.spec, err = chooseFormat(&p.SharedArgs, stepFields, defaultStepFormat, defaultStepLongFormat)
		errs = append(errs, err)
		p.keys, err = sortKeys(p.Sort, defaultStepSort, stepFields)
		errs = append(errs, err)
	} else {
		p.spec, err = chooseFormat(&p.SharedArgs, jobFields, defaultJobFormat, defaultJobLongFormat)
		errs = append(errs, err)
		p.keys, err = sortKeys(p.Sort, defaultJobSort, jobFields)
		errs = append(errs, err)
	}
	p.filter, err = p.compileFilter()
	errs = append(errs, err)
	return errors.Join(errs...)
}

func chooseFormat[T any](s *cli.SharedArgs, reg *table.Registry[T], short, long string) (table.FormatSpec, error) {
	var spec table.FormatSpec
	switch {
	case s.FormatLong != "":
		var err error
		spec, err = table.ParseLongFormat(s.FormatLong, reg.CodeForName)
		if err != nil {
			return nil, NewInvalidArgument("%v", err)
		}
	case s.Format != "":
		spec = table.ParseFormat(s.Format)
	case s.Long:
		spec = table.ParseFormat(long)
	default:
		spec = table.ParseFormat(short)
	}
	if err := reg.Validate(spec); err != nil {
		return nil, NewInvalidArgument("%v", err)
	}
	return spec, nil
}

func sortKeys[T any](s, dflt string, reg *table.Registry[T]) ([]table.SortKey, error) {
	if s == "" {
		s = dflt
	}
	keys, err := table.ParseSortSpec(s, func(c byte) bool {
		_, found := reg.Lookup(c)
		return found
	})
	if err != nil {
		return nil, NewInvalidArgument("%v", err)
	}
	return keys, nil
}

func (p *Params) compileFilter() (*filter, error) {
	var errs []error
	f := &filter{
		partitions:   toSet(p.Partitions.Items, false),
		accounts:     toSet(p.Accounts.Items, true),
		qos:          toSet(p.QOS.Items, true),
		reservations: toSet(p.Reservations.Items, false),
		licenses:     toSet(p.Licenses.Items, false),
		names:        toSet(p.Names.Items, false),
		showHidden:   p.All || len(p.Partitions.Items) > 0,
	}
	for _, s := range p.Jobs.Items {
		sel, err := parseJobSelector(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f.jobs = append(f.jobs, sel)
	}
	for _, s := range p.Steps.Items {
		sel, err := parseStepSelector(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f.steps = append(f.steps, sel)
	}

	switch {
	case len(p.States.Items) > 0:
		states, err := parseStates(p.States.Items)
		errs = append(errs, err)
		f.states = states
	case len(p.Jobs.Items) == 0:
		f.states = defaultStates()
	}

	users := p.Users.Items
	if p.Me {
		uid, err := CurrentUid()
		if err != nil {
			errs = append(errs, err)
		} else {
			users = []string{fmt.Sprint(uid)}
		}
	}
	if len(users) > 0 {
		f.users = resolveUsers(users)
	}

	if p.Nodes != "" {
		nodes, err := parseNodes(p.Nodes)
		errs = append(errs, err)
		f.nodes = nodes
	}
	return f, errors.Join(errs...)
}

func (p *Params) FormatHelp(out io.Writer) {
	fmt.Fprintln(out, "Job fields:")
	for _, l := range describeFields(jobFields) {
		fmt.Fprintln(out, "  "+l)
	}
	fmt.Fprintln(out, "Step fields (with --steps):")
	for _, l := range describeFields(stepFields) {
		fmt.Fprintln(out, "  "+l)
	}
}

func (p *Params) Dump(info *cli.Info) {
	p.SharedArgs.Dump(info)
	info.Set("accounts", p.Accounts.String())
	info.Set("job_list", p.Jobs.String())
	info.Set("licenses", p.Licenses.String())
	info.Set("me", p.Me)
	info.Set("names", p.Names.String())
	info.Set("qos", p.QOS.String())
	info.Set("reservation", p.Reservations.String())
	info.Set("step_flag", p.stepMode)
	info.Set("step_list", p.Steps.String())
	info.Set("format_spec", p.spec.String())
	keys := make([]string, len(p.keys))
	for i, k := range p.keys {
		keys[i] = k.String()
	}
	info.Set("sort_keys", strings.Join(keys, ","))
}

func (p *Params) showFlags() source.ShowFlags {
	var flags source.ShowFlags
	if p.All {
		flags |= source.ShowAll
	}
	if p.Long {
		flags |= source.ShowDetail
	}
	return flags
}

// Run produces the report, and with --iterate produces it repeatedly until the context is
// cancelled.  A loader that reports no change lets the previous snapshot be shown again.
func (p *Params) Run(ctx context.Context, loader source.Loader, out io.Writer) error {
	var (
		jobs  *slurm.JobSnapshot
		steps *slurm.StepSnapshot
	)
	loop := cli.Loop{
		Interval: time.Duration(p.Iterate) * time.Second,
		Limit:    p.iterations,
		Sleep:    p.sleep,
	}
	return loop.Run(ctx, out, func() (err error) {
		if p.stepMode {
			steps, err = cli.Reload(ctx, steps, func(since time.Time) (*slurm.StepSnapshot, error) {
				return loader.LoadSteps(ctx, since, p.showFlags())
			}, func(s *slurm.StepSnapshot) time.Time { return s.LastUpdate })
			if err != nil {
				return err
			}
			return p.reportSteps(out, steps)
		}
		jobs, err = cli.Reload(ctx, jobs, func(since time.Time) (*slurm.JobSnapshot, error) {
			return loader.LoadJobs(ctx, since, p.showFlags())
		}, func(s *slurm.JobSnapshot) time.Time { return s.LastUpdate })
		if err != nil {
			return err
		}
		return p.reportJobs(out, jobs)
	})
}

func (p *Params) reportJobs(out io.Writer, snap *slurm.JobSnapshot) error {
	now := p.now().Unix()
	rows := make([]*jobRow, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		rows = append(rows, newJobRow(j, now))
	}
	rows = applyFilter(rows, p.filter.job)
	table.SortStable(rows, p.keys, comparators(jobFields, jobComparators))
	return table.Render(out, p.spec, jobFields, rows, !p.NoHeader)
}

func (p *Params) reportSteps(out io.Writer, snap *slurm.StepSnapshot) error {
	now := p.now().Unix()
	rows := make([]*stepRow, 0, len(snap.Steps))
	for _, s := range snap.Steps {
		rows = append(rows, newStepRow(s, now))
	}
	rows = applyFilter(rows, p.filter.step)
	table.SortStable(rows, p.keys, comparators(stepFields, stepComparators))
	return table.Render(out, p.spec, stepFields, rows, !p.NoHeader)
}
