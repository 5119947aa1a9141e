package squeue

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
)

// A job selector from --jobs: "10", "10_5" (array task) or "7+1" (het job component).
type jobSelector struct {
	id      uint32
	task    uint32
	hasTask bool
	offset  uint32
	isHet   bool
}

func parseJobSelector(s string) (jobSelector, error) {
	var sel jobSelector
	id, rest, hasTask := strings.Cut(s, "_")
	if !hasTask {
		id, rest, sel.isHet = strings.Cut(s, "+")
	}
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return sel, NewInvalidArgument("Invalid job id: %s", s)
	}
	sel.id = uint32(n)
	if hasTask || sel.isHet {
		m, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return sel, NewInvalidArgument("Invalid job id: %s", s)
		}
		if hasTask {
			sel.task, sel.hasTask = uint32(m), true
		} else {
			sel.offset = uint32(m)
		}
	}
	return sel, nil
}

func (sel jobSelector) matches(j *slurm.JobRecord) bool {
	switch {
	case sel.hasTask:
		return j.ArrayJobID == sel.id && j.ArrayTaskID == sel.task
	case sel.isHet:
		return j.HetJobID == sel.id && j.HetJobOffset == sel.offset
	default:
		return j.JobID == sel.id || j.ArrayJobID == sel.id || j.HetJobID == sel.id
	}
}

// A step selector from --steps: "10.0", "10.batch", "10_5.1".
type stepSelector struct {
	job  jobSelector
	step int32
}

func parseStepID(s string) (int32, bool) {
	switch s {
	case "batch":
		return slurm.StepBatch, true
	case "extern":
		return slurm.StepExtern, true
	case "interactive":
		return slurm.StepInteractive, true
	}
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func parseStepSelector(s string) (stepSelector, error) {
	job, step, found := strings.Cut(s, ".")
	if !found {
		return stepSelector{}, NewInvalidArgument("Invalid job step id: %s", s)
	}
	sel, err := parseJobSelector(job)
	if err != nil || sel.isHet {
		return stepSelector{}, NewInvalidArgument("Invalid job step id: %s", s)
	}
	id, ok := parseStepID(step)
	if !ok {
		return stepSelector{}, NewInvalidArgument("Invalid job step id: %s", s)
	}
	return stepSelector{job: sel, step: id}, nil
}

func (sel stepSelector) matches(s *slurm.StepRecord) bool {
	if s.StepID != sel.step {
		return false
	}
	if sel.job.hasTask {
		return s.ArrayJobID == sel.job.id && s.ArrayTaskID == sel.job.task
	}
	return s.JobID == sel.job.id || s.ArrayJobID == sel.job.id
}

// The users filter holds the uids of the names that resolved, and the names themselves for
// records that carry only a name.
type userSet struct {
	uids  map[uint32]bool
	names map[string]bool
}

func (u *userSet) matches(uid uint32, name string) bool {
	if uid != slurm.NoVal {
		return u.uids[uid]
	}
	return u.names[name]
}

// The compiled filter.  Nil or empty members do not filter; `users` and `nodes` filter when non-nil
// even if empty, since a list of names that all failed to resolve selects nothing.
type filter struct {
	jobs         []jobSelector
	steps        []stepSelector
	partitions   map[string]bool
	states       []slurm.JobStateSpec
	users        *userSet
	accounts     map[string]bool
	qos          map[string]bool
	reservations map[string]bool
	licenses     map[string]bool
	names        map[string]bool
	nodes        *hostlist.Hostlist
	showHidden   bool
}

func toSet(items []string, fold bool) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, s := range items {
		if fold {
			s = strings.ToLower(s)
		}
		set[s] = true
	}
	return set
}

// The states shown when neither states nor jobs are given.
func defaultStates() []slurm.JobStateSpec {
	return []slurm.JobStateSpec{
		{State: slurm.JobPending, HasState: true},
		{State: slurm.JobRunning, HasState: true},
	}
}

func parseStates(items []string) ([]slurm.JobStateSpec, error) {
	var errs []error
	specs := make([]slurm.JobStateSpec, 0, len(items))
	for _, s := range items {
		if strings.EqualFold(s, "all") {
			return nil, nil
		}
		spec, err := slurm.ParseJobState(s)
		if err != nil {
			errs = append(errs, NewInvalidArgument("%v", err))
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errors.Join(errs...)
}

// Names that don't resolve are reported and dropped.
func resolveUsers(items []string) *userSet {
	u := &userSet{uids: make(map[uint32]bool), names: make(map[string]bool)}
	for _, name := range items {
		uid, err := NameToUid(name)
		if err != nil {
			Log.Warningf("%v", err)
			continue
		}
		u.uids[uid] = true
		u.names[name] = true
		u.names[UidToName(uid)] = true
	}
	return u
}

func parseNodes(expr string) (*hostlist.Hostlist, error) {
	expr, err := RewriteLocalhost(expr)
	if err != nil {
		return nil, NewInternal("Unable to get the local host name: %v", err)
	}
	h, err := hostlist.Parse(expr)
	if err != nil {
		return nil, NewInvalidArgument("Invalid node name: %s", expr)
	}
	return h, nil
}

func (f *filter) partitionMatches(p string) bool {
	if f.partitions == nil {
		return true
	}
	for _, q := range partitions(p) {
		if f.partitions[q] {
			return true
		}
	}
	return false
}

func (f *filter) stateMatches(j *slurm.JobRecord) bool {
	if f.states == nil {
		return true
	}
	for _, s := range f.states {
		if s.Matches(j.State, j.StateFlags) {
			return true
		}
	}
	return false
}

func licenseNames(l string) []string {
	names := make([]string, 0)
	for _, item := range strings.Split(l, ",") {
		name, _, _ := strings.Cut(item, ":")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (f *filter) job(j *jobRow) bool {
	if j.Hidden && !f.showHidden {
		return false
	}
	if f.jobs != nil && !slices.ContainsFunc(f.jobs, func(s jobSelector) bool { return s.matches(j.JobRecord) }) {
		return false
	}
	if !f.partitionMatches(j.Partition) || !f.stateMatches(j.JobRecord) {
		return false
	}
	if f.users != nil && !f.users.matches(j.UserID, j.UserName) {
		return false
	}
	if f.accounts != nil && !f.accounts[strings.ToLower(j.Account)] {
		return false
	}
	if f.qos != nil && !f.qos[strings.ToLower(j.QOS)] {
		return false
	}
	if f.reservations != nil && !f.reservations[j.Reservation] {
		return false
	}
	if f.names != nil && !f.names[j.Name] {
		return false
	}
	if f.licenses != nil && !slices.ContainsFunc(licenseNames(j.Licenses), func(l string) bool { return f.licenses[l] }) {
		return false
	}
	if f.nodes != nil && !f.nodes.Intersects(j.nodeList()) {
		return false
	}
	return true
}

func (f *filter) step(s *stepRow) bool {
	if f.steps != nil && !slices.ContainsFunc(f.steps, func(sel stepSelector) bool { return sel.matches(s.StepRecord) }) {
		return false
	}
	if !f.partitionMatches(s.Partition) {
		return false
	}
	if f.users != nil && !f.users.matches(s.UserID, s.UserName) {
		return false
	}
	if f.nodes != nil && !f.nodes.Intersects(s.nodeList()) {
		return false
	}
	return true
}

func applyFilter[T any](rows []*T, keep func(*T) bool) []*T {
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
