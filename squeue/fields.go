package squeue

import (
	"fmt"
	"strconv"
	"strings"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/table"
)

// A job with the render-time context.  The node list is parsed on first use.
type jobRow struct {
	*slurm.JobRecord
	now   int64
	hosts *hostlist.Hostlist
}

func newJobRow(j *slurm.JobRecord, now int64) *jobRow {
	return &jobRow{JobRecord: j, now: now}
}

func (j *jobRow) nodeList() *hostlist.Hostlist {
	if j.hosts == nil {
		h, err := hostlist.Parse(j.Nodes)
		if err != nil {
			Log.Debugf("Job %d: bad node list %q: %v", j.JobID, j.Nodes, err)
			h = hostlist.New()
		}
		j.hosts = h
	}
	return j.hosts
}

// jobIDString is the display form: "10_5" for an array task, "10_[6-9]" for the pending remainder
// of an array, "7+1" for a heterogeneous job component.
func jobIDString(j *slurm.JobRecord) string {
	switch {
	case j.IsArray() && j.ArrayTaskID != slurm.NoVal:
		return fmt.Sprintf("%d_%d", j.ArrayJobID, j.ArrayTaskID)
	case j.IsArray():
		return fmt.Sprintf("%d_%s", j.ArrayJobID, j.ArrayTaskStr)
	case j.IsHet():
		return fmt.Sprintf("%d+%d", j.HetJobID, j.HetJobOffset)
	default:
		return strconv.FormatUint(uint64(j.JobID), 10)
	}
}

func userName(uid uint32, name string) string {
	if name != "" {
		return name
	}
	if uid == slurm.NoVal {
		return "N/A"
	}
	return UidToName(uid)
}

func orNull(s string) string {
	if s == "" {
		return "(null)"
	}
	return s
}

func count(v uint32) string {
	if !slurm.IsSet32(v) {
		return "N/A"
	}
	return strconv.FormatUint(uint64(v), 10)
}

func starOr(v uint32) string {
	if !slurm.IsSet32(v) {
		return "*"
	}
	return strconv.FormatUint(uint64(v), 10)
}

// Megabytes, in G when that is exact.
func megabytes(v uint64) string {
	switch {
	case !slurm.IsSet64(v):
		return "N/A"
	case v != 0 && v%1024 == 0:
		return strconv.FormatUint(v/1024, 10) + "G"
	default:
		return strconv.FormatUint(v, 10) + "M"
	}
}

func timestamp(t int64) string {
	switch t {
	case slurm.TimeUnset:
		return "N/A"
	case slurm.TimeInfinite:
		return "Unknown"
	default:
		return slurm.FormatTimestamp(t)
	}
}

// Seconds the job has run, excluding suspended time.
func timeUsed(j *slurm.JobRecord, now int64) int64 {
	if j.State == slurm.JobPending || j.StartTime == slurm.TimeUnset {
		return 0
	}
	if j.State == slurm.JobSuspended {
		return j.PreSusTime
	}
	end := j.EndTime
	if j.State == slurm.JobRunning || end == slurm.TimeUnset || end == slurm.TimeInfinite {
		end = now
	}
	var used int64
	if j.SuspendTime != slurm.TimeUnset {
		used = end - j.SuspendTime + j.PreSusTime
	} else {
		used = end - j.StartTime
	}
	return max(used, 0)
}

// Seconds left, or -1 for no limit and -2 for an unset limit.
func timeLeft(j *slurm.JobRecord, now int64) int64 {
	switch j.TimeLimit {
	case slurm.Infinite:
		return -1
	case slurm.NoVal:
		return -2
	}
	return max(int64(j.TimeLimit)*60-timeUsed(j, now), 0)
}

// Jobs holding nodes show the node list, others the reason.
func showsReason(j *slurm.JobRecord) bool {
	return j.State != slurm.JobRunning && !slurm.IsCompleting(j.State, j.StateFlags)
}

func reason(j *slurm.JobRecord) string {
	if j.StateReason == "" {
		return "None"
	}
	return j.StateReason
}

// Priority normalized to [0,1].
func normalizedPriority(prio uint32) string {
	return fmt.Sprintf("%.14f", float64(prio)/float64(0xffffffff))
}

var jobFields = table.NewRegistry([]table.Field[jobRow]{
	{Code: 'a', Name: "account", Header: "ACCOUNT", Help: "Account charged",
		Cell: func(j *jobRow) string { return orNull(j.Account) }},
	{Code: 'A', Name: "jobid", Header: "JOBID", Help: "Job id, unique for each array task",
		Cell: func(j *jobRow) string { return strconv.FormatUint(uint64(j.JobID), 10) }},
	{Code: 'c', Name: "mincpus", Header: "MIN_CPUS", Help: "Minimum CPUs per node requested",
		Cell: func(j *jobRow) string { return count(j.MinCPUsPerNode) }},
	{Code: 'C', Name: "numcpus", Header: "CPUS", Help: "CPUs requested or allocated",
		Cell: func(j *jobRow) string { return count(j.NumCPUs) }},
	{Code: 'd', Name: "mintmpdisk", Header: "MIN_TMP_DISK", Help: "Minimum temporary disk per node",
		Cell: func(j *jobRow) string { return megabytes(uint64(j.MinTmpDisk)) }},
	{Code: 'D', Name: "numnodes", Header: "NODES", Help: "Nodes requested or allocated",
		Cell: func(j *jobRow) string { return count(j.NumNodes) }},
	{Code: 'e', Name: "endtime", Header: "END_TIME", Help: "Actual or expected end time",
		Cell: func(j *jobRow) string {
			switch j.EndTime {
			case slurm.TimeInfinite:
				return "NONE"
			case slurm.TimeUnset:
				return "N/A"
			}
			return slurm.FormatTimestamp(j.EndTime)
		}},
	{Code: 'E', Name: "dependency", Header: "DEPENDENCY", Help: "Remaining dependencies",
		Cell: func(j *jobRow) string { return orNull(j.Dependency) }},
	{Code: 'f', Name: "feature", Header: "FEATURES", Help: "Required features",
		Cell: func(j *jobRow) string { return orNull(j.Features) }},
	{Code: 'F', Name: "arrayjobid", Header: "ARRAY_JOB_ID", Help: "Array job id",
		Cell: func(j *jobRow) string {
			if j.IsArray() {
				return strconv.FormatUint(uint64(j.ArrayJobID), 10)
			}
			return strconv.FormatUint(uint64(j.JobID), 10)
		}},
	{Code: 'g', Name: "groupname", Header: "GROUP", Help: "Group name",
		Cell: func(j *jobRow) string {
			if j.GroupID == slurm.NoVal {
				return "N/A"
			}
			return GidToName(j.GroupID)
		}},
	{Code: 'G', Name: "groupid", Header: "GROUP", Help: "Group id",
		Cell: func(j *jobRow) string { return count(j.GroupID) }},
	{Code: 'h', Name: "oversubscribe", Header: "OVER_SUBSCRIBE", Help: "Whether nodes may be shared",
		Cell: func(j *jobRow) string { return j.OverSubscribe }},
	{Code: 'H', Name: "sockets", Header: "SOCKETS", Help: "Sockets per node requested",
		Cell: func(j *jobRow) string { return starOr(j.Sockets) }},
	{Code: 'i', Name: "jobarrayid", Header: "JOBID", Help: "Job id, in array or het job form",
		Cell: func(j *jobRow) string { return jobIDString(j.JobRecord) }},
	{Code: 'I', Name: "cores", Header: "CORES", Help: "Cores per socket requested",
		Cell: func(j *jobRow) string { return starOr(j.Cores) }},
	{Code: 'j', Name: "name", Header: "NAME", Help: "Job name",
		Cell: func(j *jobRow) string { return j.Name }},
	{Code: 'J', Name: "threads", Header: "THREADS", Help: "Threads per core requested",
		Cell: func(j *jobRow) string { return starOr(j.Threads) }},
	{Code: 'K', Name: "arraytaskid", Header: "ARRAY_TASK_ID", Help: "Array task id",
		Cell: func(j *jobRow) string {
			switch {
			case !j.IsArray():
				return "N/A"
			case j.ArrayTaskID == slurm.NoVal:
				return j.ArrayTaskStr
			default:
				return strconv.FormatUint(uint64(j.ArrayTaskID), 10)
			}
		}},
	{Code: 'l', Name: "timelimit", Header: "TIME_LIMIT", Help: "Time limit",
		Cell: func(j *jobRow) string { return slurm.MinsToTime(j.TimeLimit) }},
	{Code: 'L', Name: "timeleft", Header: "TIME_LEFT", Help: "Time left before the limit",
		Cell: func(j *jobRow) string {
			switch left := timeLeft(j.JobRecord, j.now); left {
			case -1:
				return "UNLIMITED"
			case -2:
				return "NOT_SET"
			default:
				return slurm.SecsToTime(left)
			}
		}},
	{Code: 'm', Name: "minmemory", Header: "MIN_MEMORY", Help: "Minimum memory per node",
		Cell: func(j *jobRow) string { return megabytes(j.MinMemory) }},
	{Code: 'M', Name: "timeused", Header: "TIME", Help: "Time used",
		Cell: func(j *jobRow) string { return slurm.SecsToTime(timeUsed(j.JobRecord, j.now)) }},
	{Code: 'n', Name: "reqnodes", Header: "REQ_NODES", Help: "Requested nodes",
		Cell: func(j *jobRow) string { return j.ReqNodes }},
	{Code: 'N', Name: "nodelist", Header: "NODELIST", Help: "Allocated nodes",
		Cell: func(j *jobRow) string { return j.nodeList().Ranged() }},
	{Code: 'o', Name: "command", Header: "COMMAND", Help: "Command",
		Cell: func(j *jobRow) string { return j.Command }},
	{Code: 'O', Name: "contiguous", Header: "CONTIGUOUS", Help: "Contiguous nodes requested",
		Cell: func(j *jobRow) string {
			if j.Contiguous {
				return "1"
			}
			return "0"
		}},
	{Code: 'p', Name: "priority", Header: "PRIORITY", Help: "Priority, normalized",
		Cell: func(j *jobRow) string { return normalizedPriority(j.Priority) }},
	{Code: 'P', Name: "partition", Header: "PARTITION", Help: "Partition",
		Cell: func(j *jobRow) string { return j.Partition }},
	{Code: 'q', Name: "qos", Header: "QOS", Help: "Quality of service",
		Cell: func(j *jobRow) string { return orNull(j.QOS) }},
	{Code: 'Q', Name: "prioritylong", Header: "PRIORITY", Help: "Priority",
		Cell: func(j *jobRow) string { return strconv.FormatUint(uint64(j.Priority), 10) }},
	{Code: 'r', Name: "reason", Header: "REASON", Help: "Reason for the state",
		Cell: func(j *jobRow) string { return reason(j.JobRecord) }},
	{Code: 'R', Name: "reasonlist", Header: "NODELIST(REASON)", Help: "Reason if pending or failed, otherwise nodes",
		Cell: func(j *jobRow) string {
			if showsReason(j.JobRecord) {
				return "(" + reason(j.JobRecord) + ")"
			}
			return j.nodeList().Ranged()
		}},
	{Code: 'S', Name: "starttime", Header: "START_TIME", Help: "Actual or expected start time",
		Cell: func(j *jobRow) string { return timestamp(j.StartTime) }},
	{Code: 't', Name: "statecompact", Header: "ST", Help: "State, compact",
		Cell: func(j *jobRow) string { return slurm.JobStateCompact(j.State, j.StateFlags) }},
	{Code: 'T', Name: "state", Header: "STATE", Help: "State",
		Cell: func(j *jobRow) string { return slurm.JobStateString(j.State, j.StateFlags) }},
	{Code: 'u', Name: "username", Header: "USER", Help: "User name",
		Cell: func(j *jobRow) string { return userName(j.UserID, j.UserName) }},
	{Code: 'U', Name: "userid", Header: "UID", Help: "User id",
		Cell: func(j *jobRow) string { return count(j.UserID) }},
	{Code: 'v', Name: "reservation", Header: "RESERVATION", Help: "Reservation",
		Cell: func(j *jobRow) string { return orNull(j.Reservation) }},
	{Code: 'V', Name: "submittime", Header: "SUBMIT_TIME", Help: "Submission time",
		Cell: func(j *jobRow) string { return timestamp(j.SubmitTime) }},
	{Code: 'W', Name: "licenses", Header: "LICENSES", Help: "Licenses",
		Cell: func(j *jobRow) string { return orNull(j.Licenses) }},
	{Code: 'x', Name: "exc_nodes", Header: "EXC_NODES", Help: "Excluded nodes",
		Cell: func(j *jobRow) string { return j.ExcNodes }},
	{Code: 'z', Name: "sct", Header: "S:C:T", Help: "Sockets, cores and threads requested",
		Cell: func(j *jobRow) string {
			return starOr(j.Sockets) + ":" + starOr(j.Cores) + ":" + starOr(j.Threads)
		}},
	{Code: 'Z', Name: "workdir", Header: "WORK_DIR", Help: "Working directory",
		Cell: func(j *jobRow) string { return j.WorkDir }},
})

func init() {
	jobFields.Alias("shared", 'h')
	jobFields.Alias("user", 'u')
	jobFields.Alias("excnodes", 'x')
	jobFields.Alias("st", 't')
}

const (
	defaultJobFormat     = "%.18i %.9P %.8j %.8u %.2t %.10M %.6D %R"
	defaultJobLongFormat = "%.18i %.9P %.8j %.8u %.8T %.10M %.9l %.6D %R"
	defaultJobSort       = "P,t,-p"
)

// Used by the help output.
func describeFields[T any](reg *table.Registry[T]) []string {
	lines := make([]string, 0)
	for _, f := range reg.Fields() {
		lines = append(lines, fmt.Sprintf("%%%c  %-16s %-18s %s", f.Code, f.Name, f.Header, f.Help))
	}
	return lines
}

// A pending job may list several partitions.
func partitions(p string) []string {
	return strings.Split(p, ",")
}
