package sinfo

import (
	"fmt"
	"strconv"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/table"
)

func count32(v uint32) string {
	switch v {
	case slurm.Infinite:
		return "infinite"
	case slurm.NoVal:
		return "N/A"
	default:
		return u32(v)
	}
}

func count64(v uint64) string {
	if !slurm.IsSet64(v) {
		return "N/A"
	}
	return u64(v)
}

func load(v uint32) string {
	if !slurm.IsSet32(v) {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", float64(v)/100)
}

// Partition attributes render as "n/a" on rows without a partition.
func partition[T any](r *GroupedRow, f func(p *slurm.PartitionRecord) T, show func(T) string) string {
	if r.Partition == nil {
		return NoPartition
	}
	return show(f(r.Partition))
}

func timeLimit(mins uint32) string {
	switch mins {
	case slurm.Infinite:
		return "infinite"
	case slurm.NoVal:
		return "n/a"
	default:
		return slurm.MinsToTime(mins)
	}
}

// Oversubscription: EXCLUSIVE, NO, YES:n or FORCE:n.
func oversubscribe(share uint16) string {
	n := share &^ slurm.SharedForce
	switch {
	case share&slurm.SharedForce != 0:
		return "FORCE:" + strconv.Itoa(int(n))
	case n == 0:
		return "EXCLUSIVE"
	case n == 1:
		return "NO"
	default:
		return "YES:" + strconv.Itoa(int(n))
	}
}

func jobSize(p *slurm.PartitionRecord) string {
	lo := p.MinNodes
	if !slurm.IsSet32(lo) {
		lo = 1
	}
	if p.MaxNodes == slurm.Infinite || p.MaxNodes == slurm.NoVal {
		return u32(lo) + "-infinite"
	}
	if lo == p.MaxNodes {
		return u32(lo)
	}
	return u32(lo) + "-" + u32(p.MaxNodes)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func reasonUser(r *GroupedRow) string {
	switch {
	case r.ReasonUser != "":
		return r.ReasonUser
	case r.ReasonUID != slurm.NoVal:
		return UidToName(r.ReasonUID)
	default:
		return "Unknown"
	}
}

func orNull(s string) string {
	if s == "" {
		return "(null)"
	}
	return s
}

var nodeFields = table.NewRegistry([]table.Field[GroupedRow]{
	{Code: 'a', Name: "available", Header: "AVAIL", Help: "Partition availability",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) slurm.PartitionAvail { return p.Avail },
				slurm.PartitionAvail.String)
		}},
	{Code: 'A', Name: "nodeai", Header: "NODES(A)", Help: "Number of allocated nodes",
		Cell: func(r *GroupedRow) string { return u32(r.Allocated) }},
	{Code: 'b', Name: "features_act", Header: "ACTIVE_FEATURES", Help: "Active features",
		Cell: func(r *GroupedRow) string { return orNull(r.ActiveFeatures) }},
	{Code: 'c', Name: "cpus", Header: "CPUS", Help: "CPUs per node",
		Cell: func(r *GroupedRow) string { return r.CPUs.format(u32) }},
	{Code: 'd', Name: "disk", Header: "TMP_DISK", Help: "Temporary disk space per node, MB",
		Cell: func(r *GroupedRow) string { return r.TmpDisk.format(u32) }},
	{Code: 'D', Name: "nodes", Header: "NODES", Help: "Number of nodes",
		Cell: func(r *GroupedRow) string { return u32(r.Total) }},
	{Code: 'e', Name: "freemem", Header: "FREE_MEM", Help: "Free memory per node, MB",
		Cell: func(r *GroupedRow) string { return r.FreeMem.format(count64) }},
	{Code: 'E', Name: "reason", Header: "REASON", Help: "Reason a node is unavailable",
		Cell: func(r *GroupedRow) string {
			if r.Reason == "" {
				return "none"
			}
			return r.Reason
		}},
	{Code: 'f', Name: "features", Header: "AVAIL_FEATURES", Help: "Available features",
		Cell: func(r *GroupedRow) string { return orNull(r.Features) }},
	{Code: 'F', Name: "nodeaiot", Header: "NODES(A/I/O/T)", Help: "Allocated/idle/other/total nodes",
		Cell: func(r *GroupedRow) string {
			return fmt.Sprintf("%d/%d/%d/%d", r.Allocated, r.Idle, r.Other, r.Total)
		}},
	{Code: 'g', Name: "groups", Header: "GROUPS", Help: "Groups that may use the partition",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) string { return p.AllowGroups },
				func(g string) string {
					if g == "" {
						return "all"
					}
					return g
				})
		}},
	{Code: 'h', Name: "oversubscribe", Header: "OVERSUBSCRIBE", Help: "Whether jobs may share nodes",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) uint16 { return p.MaxShare }, oversubscribe)
		}},
	{Code: 'H', Name: "timestamp", Header: "TIMESTAMP", Help: "When the reason was set",
		Cell: func(r *GroupedRow) string {
			if r.ReasonTime == slurm.TimeUnset {
				return "Unknown"
			}
			return slurm.FormatTimestamp(r.ReasonTime)
		}},
	{Code: 'l', Name: "timelimit", Header: "TIMELIMIT", Help: "Maximum job time",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) uint32 { return p.MaxTime }, timeLimit)
		}},
	{Code: 'm', Name: "memory", Header: "MEMORY", Help: "Memory per node, MB",
		Cell: func(r *GroupedRow) string { return r.Memory.format(u64) }},
	{Code: 'M', Name: "preemptmode", Header: "PREEMPT_MODE", Help: "Preemption mode",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) string { return p.PreemptMode }, orNull)
		}},
	{Code: 'n', Name: "nodehost", Header: "HOSTNAMES", Help: "Host names",
		Cell: func(r *GroupedRow) string { return r.Hostnames.Ranged() }},
	{Code: 'N', Name: "nodelist", Header: "NODELIST", Help: "Node names",
		Cell: func(r *GroupedRow) string { return r.Nodes.Ranged() }},
	{Code: 'o', Name: "nodeaddr", Header: "NODE_ADDR", Help: "Node addresses",
		Cell: func(r *GroupedRow) string { return r.Addresses.Ranged() }},
	{Code: 'O', Name: "cpusload", Header: "CPU_LOAD", Help: "CPU load",
		Cell: func(r *GroupedRow) string { return r.CPULoad.format(load) }},
	{Code: 'p', Name: "priorityjobfactor", Header: "PRIO_JOB_FACTOR", Help: "Partition job priority factor",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) uint32 { return p.PriorityJobFactor }, count32)
		}},
	{Code: 'P', Name: "partition", Header: "PARTITION", Help: "Partition name, * marks the default",
		Cell: func(r *GroupedRow) string {
			if r.Partition != nil && r.Partition.Default {
				return r.PartName + "*"
			}
			return r.PartName
		}},
	{Code: 'r', Name: "root", Header: "ROOT", Help: "Whether only root may allocate",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) bool { return p.RootOnly }, yesNo)
		}},
	{Code: 'R', Name: "prioritytier", Header: "PRIO_TIER", Help: "Partition priority tier",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) uint32 { return p.PriorityTier }, count32)
		}},
	{Code: 's', Name: "size", Header: "JOB_SIZE", Help: "Nodes a job may use",
		Cell: func(r *GroupedRow) string {
			return partition(r, func(p *slurm.PartitionRecord) *slurm.PartitionRecord { return p }, jobSize)
		}},
	{Code: 't', Name: "statecompact", Header: "STATE", Help: "State, compact",
		Cell: func(r *GroupedRow) string {
			if r.Empty() {
				return "n/a"
			}
			return r.State.CompactString()
		}},
	{Code: 'T', Name: "statelong", Header: "STATE", Help: "State",
		Cell: func(r *GroupedRow) string {
			if r.Empty() {
				return "n/a"
			}
			return r.State.String()
		}},
	{Code: 'u', Name: "user", Header: "USER", Help: "User who set the reason",
		Cell: reasonUser},
	{Code: 'U', Name: "userid", Header: "UID", Help: "Uid of the user who set the reason",
		Cell: func(r *GroupedRow) string { return count32(r.ReasonUID) }},
	{Code: 'V', Name: "cluster", Header: "CLUSTER", Help: "Cluster name",
		Cell: func(r *GroupedRow) string { return r.Cluster }},
	{Code: 'w', Name: "weight", Header: "WEIGHT", Help: "Scheduling weight",
		Cell: func(r *GroupedRow) string { return r.Weight.format(u32) }},
	{Code: 'X', Name: "sockets", Header: "SOCKETS", Help: "Sockets per node",
		Cell: func(r *GroupedRow) string { return r.Sockets.format(u32) }},
	{Code: 'Y', Name: "cores", Header: "CORES", Help: "Cores per socket",
		Cell: func(r *GroupedRow) string { return r.Cores.format(u32) }},
	{Code: 'z', Name: "sct", Header: "S:C:T", Help: "Sockets, cores and threads",
		Cell: func(r *GroupedRow) string {
			return r.Sockets.format(u32) + ":" + r.Cores.format(u32) + ":" + r.Threads.format(u32)
		}},
	{Code: 'Z', Name: "threads", Header: "THREADS", Help: "Threads per core",
		Cell: func(r *GroupedRow) string { return r.Threads.format(u32) }},
})

func init() {
	nodeFields.Alias("partitionname", 'P')
	nodeFields.Alias("state", 'T')
	nodeFields.Alias("nodeaddress", 'o')
	nodeFields.Alias("hostnames", 'n')
}

const (
	defaultFormat           = "%9P %.5a %.10l %.6D %.6t %N"
	defaultLongFormat       = "%9P %.5a %.10l %.10s %.4r %.8h %.10g %.6D %.11T %N"
	defaultNodeFormat       = "%10N %.6D %9P %6t"
	defaultNodeLongFormat   = "%10N %.6D %9P %.11T %.4c %.8z %.6m %.8d %.6w %.8f %20E"
	defaultSummarizeFormat  = "%9P %.5a %.10l %.16F  %N"
	defaultSort             = "#P,-t"
	defaultNodeOrientedSort = "N"
)
