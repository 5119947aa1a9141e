package sinfo

import (
	"errors"
	"strings"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
)

// The node filter.  Partitions and hidden partitions are handled by Group.
type filter struct {
	states      []slurm.NodeStateSpec // nil means all
	nodes       *hostlist.Hostlist
	dead        bool
	responding  bool
	reservation string

	// Users who set the node reason; non-nil filters even if empty
	uids  map[uint32]bool
	names map[string]bool
}

func parseStates(items []string) ([]slurm.NodeStateSpec, error) {
	var errs []error
	specs := make([]slurm.NodeStateSpec, 0, len(items))
	for _, s := range items {
		if strings.EqualFold(s, "all") {
			return nil, nil
		}
		spec, err := slurm.ParseNodeState(s)
		if err != nil {
			errs = append(errs, NewInvalidArgument("%v", err))
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errors.Join(errs...)
}

func (f *filter) setUsers(items []string) {
	f.uids = make(map[uint32]bool)
	f.names = make(map[string]bool)
	for _, name := range items {
		uid, err := NameToUid(name)
		if err != nil {
			Log.Warningf("%v", err)
			continue
		}
		f.uids[uid] = true
		f.names[name] = true
		f.names[UidToName(uid)] = true
	}
}

func (f *filter) node(n *slurm.NodeRecord) bool {
	if f.states != nil {
		match := false
		for _, s := range f.states {
			if s.Matches(n.State) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if f.nodes != nil && !f.nodes.Contains(n.Name) {
		return false
	}
	if f.dead && !n.State.Has(slurm.NodeNotResponding) {
		return false
	}
	if f.responding && n.State.Has(slurm.NodeNotResponding) {
		return false
	}
	if f.reservation != "" && n.Reservation != f.reservation {
		return false
	}
	if f.uids != nil {
		if n.ReasonUID != slurm.NoVal {
			return f.uids[n.ReasonUID]
		}
		return n.ReasonUser != "" && f.names[n.ReasonUser]
	}
	return true
}
