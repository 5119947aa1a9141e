package sinfo

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
)

// Nodes in no partition are shown under this name.
const NoPartition = "n/a"

// A span is the min and max of a value over the members of a row.
type span[T cmp.Ordered] struct {
	Min, Max T
	set      bool
}

func (s *span[T]) add(v T) {
	if !s.set {
		s.Min, s.Max, s.set = v, v, true
		return
	}
	s.Min = min(s.Min, v)
	s.Max = max(s.Max, v)
}

func (s span[T]) format(f func(T) string) string {
	if !s.set {
		return "0"
	}
	if s.Min == s.Max {
		return f(s.Min)
	}
	return f(s.Min) + "-" + f(s.Max)
}

// A GroupedRow is one output line: the nodes of one partition that agree on the grouping
// attributes.  Partition is nil for nodes in no partition.
type GroupedRow struct {
	Partition *slurm.PartitionRecord
	PartName  string
	Cluster   string

	// Of the first member; the same for all members when the state is a grouping attribute
	State slurm.NodeState

	Nodes     *hostlist.Hostlist
	Hostnames *hostlist.Hostlist
	Addresses *hostlist.Hostlist

	CPUs    span[uint32]
	Sockets span[uint32]
	Cores   span[uint32]
	Threads span[uint32]
	Memory  span[uint64]
	TmpDisk span[uint32]
	Weight  span[uint32]
	CPULoad span[uint32]
	FreeMem span[uint64]

	// Of the first member
	Features       string
	ActiveFeatures string
	Reason         string
	ReasonTime     int64
	ReasonUID      uint32
	ReasonUser     string

	Allocated, Idle, Other, Total uint32
}

func newRow(name string, p *slurm.PartitionRecord, cluster string) *GroupedRow {
	return &GroupedRow{
		Partition: p,
		PartName:  name,
		Cluster:   cluster,
		Nodes:     hostlist.New(),
		Hostnames: hostlist.New(),
		Addresses: hostlist.New(),
		ReasonUID: slurm.NoVal,
	}
}

// Empty rows stand for partitions none of whose nodes are shown.
func (r *GroupedRow) Empty() bool {
	return r.Total == 0
}

func (r *GroupedRow) add(n *slurm.NodeRecord) {
	if r.Total == 0 {
		r.State = n.State
		r.Features = n.Features
		r.ActiveFeatures = n.ActiveFeatures
		r.Reason = n.Reason
		r.ReasonTime = n.ReasonTime
		r.ReasonUID = n.ReasonUID
		r.ReasonUser = n.ReasonUser
	}
	r.Nodes.PushHost(n.Name)
	r.Hostnames.PushHost(cmp.Or(n.Hostname, n.Name))
	r.Addresses.PushHost(cmp.Or(n.Address, n.Name))

	r.CPUs.add(n.CPUs)
	r.Sockets.add(n.Sockets)
	r.Cores.add(n.Cores)
	r.Threads.add(n.Threads)
	r.Memory.add(n.Memory)
	r.TmpDisk.add(n.TmpDisk)
	r.Weight.add(n.Weight)
	r.CPULoad.add(n.CPULoad)
	r.FreeMem.add(n.FreeMem)

	r.Total++
	switch {
	case n.State.IsAllocated():
		r.Allocated++
	case n.State.IsIdle():
		r.Idle++
	default:
		r.Other++
	}
}

// GroupOptions selects the attributes that separate rows.
type GroupOptions struct {
	// Format codes whose attribute must be constant within a row
	Codes []byte

	// Separate rows by state, by node (one row per node and partition), or by every attribute
	State        bool
	NodeOriented bool
	Exact        bool

	// Which partitions are shown; nil shows all that are not hidden
	Partitions map[string]bool
	ShowHidden bool
}

type keyFunc func(n *slurm.NodeRecord) string

func u32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

var codeKeys = map[byte][]keyFunc{
	'c': {func(n *slurm.NodeRecord) string { return u32(n.CPUs) }},
	'X': {func(n *slurm.NodeRecord) string { return u32(n.Sockets) }},
	'Y': {func(n *slurm.NodeRecord) string { return u32(n.Cores) }},
	'Z': {func(n *slurm.NodeRecord) string { return u32(n.Threads) }},
	'm': {func(n *slurm.NodeRecord) string { return u64(n.Memory) }},
	'd': {func(n *slurm.NodeRecord) string { return u32(n.TmpDisk) }},
	'w': {func(n *slurm.NodeRecord) string { return u32(n.Weight) }},
	'O': {func(n *slurm.NodeRecord) string { return u32(n.CPULoad) }},
	'e': {func(n *slurm.NodeRecord) string { return u64(n.FreeMem) }},
	'f': {func(n *slurm.NodeRecord) string { return n.Features }},
	'b': {func(n *slurm.NodeRecord) string { return n.ActiveFeatures }},
	'E': {func(n *slurm.NodeRecord) string { return n.Reason }},
	'H': {func(n *slurm.NodeRecord) string { return strconv.FormatInt(n.ReasonTime, 10) }},
	'u': {
		func(n *slurm.NodeRecord) string { return u32(n.ReasonUID) },
		func(n *slurm.NodeRecord) string { return n.ReasonUser },
	},
}

func init() {
	codeKeys['z'] = append(append(append([]keyFunc{}, codeKeys['X']...), codeKeys['Y']...), codeKeys['Z']...)
	codeKeys['U'] = codeKeys['u']
}

// The attributes added by --exact and -v.
var exactCodes = []byte{'c', 'X', 'Y', 'Z', 'm', 'd', 'w', 'O', 'e', 'f', 'b'}

func (opts *GroupOptions) keyFuncs() []keyFunc {
	fs := make([]keyFunc, 0)
	seen := make(map[byte]bool)
	addCode := func(c byte) {
		if !seen[c] {
			seen[c] = true
			fs = append(fs, codeKeys[c]...)
		}
	}
	for _, c := range opts.Codes {
		addCode(c)
	}
	if opts.Exact {
		for _, c := range exactCodes {
			addCode(c)
		}
	}
	if opts.State {
		fs = append(fs, func(n *slurm.NodeRecord) string { return n.State.CompactString() })
	}
	if opts.NodeOriented {
		fs = append(fs, func(n *slurm.NodeRecord) string { return n.Name })
	}
	return fs
}

// Whether a partition is shown at all.
func (opts *GroupOptions) shows(name string, p *slurm.PartitionRecord) bool {
	if opts.Partitions != nil {
		return opts.Partitions[name]
	}
	return opts.ShowHidden || p == nil || !(p.Hidden || p.RootOnly)
}

// Group folds the nodes of snap that pass keep into rows, in order of first appearance.  A node
// contributes to one row for every partition it belongs to.  Partitions that are shown but get no
// row get an empty one.
func Group(snap *slurm.NodeSnapshot, opts GroupOptions, keep func(n *slurm.NodeRecord) bool) []*GroupedRow {
	byName := make(map[string]*slurm.PartitionRecord, len(snap.Partitions))
	for _, p := range snap.Partitions {
		byName[p.Name] = p
	}
	keys := opts.keyFuncs()
	rows := make([]*GroupedRow, 0)
	index := make(map[string]*GroupedRow)
	hasRow := make(map[string]bool)

	var key strings.Builder
	for _, n := range snap.Nodes {
		if keep != nil && !keep(n) {
			continue
		}
		memberships := n.Partitions
		if len(memberships) == 0 {
			memberships = []string{NoPartition}
		}
		for _, name := range memberships {
			p := byName[name]
			if !opts.shows(name, p) {
				continue
			}
			key.Reset()
			key.WriteString(name)
			for _, f := range keys {
				key.WriteByte(0)
				key.WriteString(f(n))
			}
			row := index[key.String()]
			if row == nil {
				row = newRow(name, p, snap.Cluster)
				index[key.String()] = row
				rows = append(rows, row)
				hasRow[name] = true
			}
			row.add(n)
		}
	}

	for _, p := range snap.Partitions {
		if !hasRow[p.Name] && opts.shows(p.Name, p) {
			rows = append(rows, newRow(p.Name, p, snap.Cluster))
		}
	}
	return rows
}
