package sinfo

import (
	"cmp"
	"math"
	"strings"

	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/table"
)

func byNumber[T cmp.Ordered](get func(r *GroupedRow) T) table.Comparator[GroupedRow] {
	return func(table.SortKey) func(a, b *GroupedRow) int {
		return func(a, b *GroupedRow) int { return cmp.Compare(get(a), get(b)) }
	}
}

func byName(get func(r *GroupedRow) string) table.Comparator[GroupedRow] {
	return func(table.SortKey) func(a, b *GroupedRow) int {
		return func(a, b *GroupedRow) int { return table.NaturalCompare(get(a), get(b)) }
	}
}

// Partition attributes of rows without a partition sort last.
func partitionNumber(get func(p *slurm.PartitionRecord) uint32) table.Comparator[GroupedRow] {
	return byNumber(func(r *GroupedRow) uint64 {
		if r.Partition == nil {
			return math.MaxUint64
		}
		return uint64(get(r.Partition))
	})
}

func partitionIndex(r *GroupedRow) int {
	if r.Partition == nil {
		return math.MaxInt
	}
	return r.Partition.Index
}

var nodeComparators = map[byte]table.Comparator[GroupedRow]{
	'A': byNumber(func(r *GroupedRow) uint32 { return r.Allocated }),
	'c': byNumber(func(r *GroupedRow) uint32 { return r.CPUs.Min }),
	'd': byNumber(func(r *GroupedRow) uint32 { return r.TmpDisk.Min }),
	'D': byNumber(func(r *GroupedRow) uint32 { return r.Total }),
	'e': byNumber(func(r *GroupedRow) uint64 { return r.FreeMem.Min }),
	'E': byNumber(func(r *GroupedRow) string { return r.Reason }),
	'H': byNumber(func(r *GroupedRow) int64 { return r.ReasonTime }),
	'l': partitionNumber(func(p *slurm.PartitionRecord) uint32 { return p.MaxTime }),
	'm': byNumber(func(r *GroupedRow) uint64 { return r.Memory.Min }),
	'n': byName(func(r *GroupedRow) string { return r.Hostnames.Min() }),
	'N': byName(func(r *GroupedRow) string { return r.Nodes.Min() }),
	'o': byName(func(r *GroupedRow) string { return r.Addresses.Min() }),
	'O': byNumber(func(r *GroupedRow) uint32 { return r.CPULoad.Min }),
	'p': partitionNumber(func(p *slurm.PartitionRecord) uint32 { return p.PriorityJobFactor }),
	'P': func(key table.SortKey) func(a, b *GroupedRow) int {
		if key.Enumerated {
			return func(a, b *GroupedRow) int { return cmp.Compare(partitionIndex(a), partitionIndex(b)) }
		}
		return func(a, b *GroupedRow) int { return strings.Compare(a.PartName, b.PartName) }
	},
	'R': partitionNumber(func(p *slurm.PartitionRecord) uint32 { return p.PriorityTier }),
	's': partitionNumber(func(p *slurm.PartitionRecord) uint32 { return p.MinNodes }),
	't': byNumber(func(r *GroupedRow) slurm.NodeState { return r.State }),
	'T': byNumber(func(r *GroupedRow) slurm.NodeState { return r.State }),
	'U': byNumber(func(r *GroupedRow) uint32 { return r.ReasonUID }),
	'w': byNumber(func(r *GroupedRow) uint32 { return r.Weight.Min }),
	'X': byNumber(func(r *GroupedRow) uint32 { return r.Sockets.Min }),
	'Y': byNumber(func(r *GroupedRow) uint32 { return r.Cores.Min }),
	'Z': byNumber(func(r *GroupedRow) uint32 { return r.Threads.Min }),
}

// The comparators for every field, by cell text where there is no specific one.
func comparators() map[byte]table.Comparator[GroupedRow] {
	all := make(map[byte]table.Comparator[GroupedRow])
	for _, f := range nodeFields.Fields() {
		if c, found := nodeComparators[f.Code]; found {
			all[f.Code] = c
			continue
		}
		cell := f.Cell
		all[f.Code] = func(table.SortKey) func(a, b *GroupedRow) int {
			return func(a, b *GroupedRow) int { return strings.Compare(cell(a), cell(b)) }
		}
	}
	return all
}
