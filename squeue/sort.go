package squeue

import (
	"cmp"
	"strings"

	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/table"
)

// Comparators for the codes that don't order by their text.  Every other code in a registry
// compares the rendered cells.

func byNumber[T any](get func(*T) uint64) table.Comparator[T] {
	return func(table.SortKey) func(a, b *T) int {
		return func(a, b *T) int { return cmp.Compare(get(a), get(b)) }
	}
}

func byInt[T any](get func(*T) int64) table.Comparator[T] {
	return func(table.SortKey) func(a, b *T) int {
		return func(a, b *T) int { return cmp.Compare(get(a), get(b)) }
	}
}

func byHosts[T any](get func(*T) *hostlist.Hostlist) table.Comparator[T] {
	return func(table.SortKey) func(a, b *T) int {
		return func(a, b *T) int { return table.NaturalCompare(get(a).Min(), get(b).Min()) }
	}
}

func byCell[T any](f *table.Field[T]) table.Comparator[T] {
	return func(table.SortKey) func(a, b *T) int {
		return func(a, b *T) int { return strings.Compare(f.Cell(a), f.Cell(b)) }
	}
}

// Jobs that hold or are about to release nodes sort before waiting jobs, and finished jobs last.
var stateRank = map[slurm.JobState]int{
	slurm.JobRunning:    0,
	slurm.JobCompleting: 1,
	slurm.JobSuspended:  2,
	slurm.JobPending:    3,
}

func jobStateRank(j *jobRow) int64 {
	if r, found := stateRank[j.State]; found {
		return int64(r)
	}
	return int64(len(stateRank)) + int64(j.State)
}

// The id the job is shown under, then the array task or het offset within it.
func jobIDKey(j *jobRow) (uint32, uint32) {
	switch {
	case j.IsArray():
		return j.ArrayJobID, j.ArrayTaskID
	case j.IsHet():
		return j.HetJobID, j.HetJobOffset
	default:
		return j.JobID, 0
	}
}

func u64(v uint32) uint64 {
	return uint64(v)
}

func timeLeftKey(j *jobRow) int64 {
	switch left := timeLeft(j.JobRecord, j.now); left {
	case -1:
		return 1<<63 - 1
	case -2:
		return 1<<63 - 2
	default:
		return left
	}
}

var jobComparators = map[byte]table.Comparator[jobRow]{
	'A': byNumber(func(j *jobRow) uint64 { return u64(j.JobID) }),
	'c': byNumber(func(j *jobRow) uint64 { return u64(j.MinCPUsPerNode) }),
	'C': byNumber(func(j *jobRow) uint64 { return u64(j.NumCPUs) }),
	'd': byNumber(func(j *jobRow) uint64 { return u64(j.MinTmpDisk) }),
	'D': byNumber(func(j *jobRow) uint64 { return u64(j.NumNodes) }),
	'e': byInt(func(j *jobRow) int64 { return j.EndTime }),
	'F': byNumber(func(j *jobRow) uint64 {
		if j.IsArray() {
			return u64(j.ArrayJobID)
		}
		return u64(j.JobID)
	}),
	'G': byNumber(func(j *jobRow) uint64 { return u64(j.GroupID) }),
	'H': byNumber(func(j *jobRow) uint64 { return u64(j.Sockets) }),
	'i': func(table.SortKey) func(a, b *jobRow) int {
		return func(a, b *jobRow) int {
			ai, at := jobIDKey(a)
			bi, bt := jobIDKey(b)
			return cmp.Or(cmp.Compare(ai, bi), cmp.Compare(at, bt))
		}
	},
	'I': byNumber(func(j *jobRow) uint64 { return u64(j.Cores) }),
	'J': byNumber(func(j *jobRow) uint64 { return u64(j.Threads) }),
	'K': byNumber(func(j *jobRow) uint64 { return u64(j.ArrayTaskID) }),
	'l': byNumber(func(j *jobRow) uint64 { return u64(j.TimeLimit) }),
	'L': byInt(timeLeftKey),
	'm': byNumber(func(j *jobRow) uint64 { return j.MinMemory }),
	'M': byInt(func(j *jobRow) int64 { return timeUsed(j.JobRecord, j.now) }),
	'N': byHosts(func(j *jobRow) *hostlist.Hostlist { return j.nodeList() }),
	'p': func(table.SortKey) func(a, b *jobRow) int {
		return func(a, b *jobRow) int {
			return cmp.Or(
				cmp.Compare(a.PartitionPriority, b.PartitionPriority),
				cmp.Compare(a.Priority, b.Priority))
		}
	},
	'P': func(table.SortKey) func(a, b *jobRow) int {
		return func(a, b *jobRow) int { return strings.Compare(a.Partition, b.Partition) }
	},
	'Q': byNumber(func(j *jobRow) uint64 { return u64(j.Priority) }),
	'S': byInt(func(j *jobRow) int64 { return j.StartTime }),
	't': byInt(jobStateRank),
	'T': byInt(jobStateRank),
	'U': byNumber(func(j *jobRow) uint64 { return u64(j.UserID) }),
	'V': byInt(func(j *jobRow) int64 { return j.SubmitTime }),
}

var stepComparators = map[byte]table.Comparator[stepRow]{
	'A': byNumber(func(s *stepRow) uint64 { return u64(s.NumTasks) }),
	'C': byNumber(func(s *stepRow) uint64 { return u64(s.NumCPUs) }),
	'D': byNumber(func(s *stepRow) uint64 { return uint64(s.nodeList().Count()) }),
	'i': func(table.SortKey) func(a, b *stepRow) int {
		return func(a, b *stepRow) int {
			return cmp.Or(
				cmp.Compare(a.JobID, b.JobID),
				cmp.Compare(stepOrdinal(a.StepID), stepOrdinal(b.StepID)))
		}
	},
	'l': byNumber(func(s *stepRow) uint64 { return u64(s.TimeLimit) }),
	'M': byInt(stepTimeUsed),
	'N': byHosts(func(s *stepRow) *hostlist.Hostlist { return s.nodeList() }),
	'P': func(table.SortKey) func(a, b *stepRow) int {
		return func(a, b *stepRow) int { return strings.Compare(a.Partition, b.Partition) }
	},
	'S': byInt(func(s *stepRow) int64 { return s.StartTime }),
	'U': byNumber(func(s *stepRow) uint64 { return u64(s.UserID) }),
}

// comparators completes `specific` with a text comparator for every other field of reg.
func comparators[T any](reg *table.Registry[T], specific map[byte]table.Comparator[T]) map[byte]table.Comparator[T] {
	all := make(map[byte]table.Comparator[T], len(specific))
	for _, f := range reg.Fields() {
		if c, found := specific[f.Code]; found {
			all[f.Code] = c
		} else {
			all[f.Code] = byCell(f)
		}
	}
	return all
}
