package squeue

import (
	"strconv"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/table"
)

type stepRow struct {
	*slurm.StepRecord
	now   int64
	hosts *hostlist.Hostlist
}

func newStepRow(s *slurm.StepRecord, now int64) *stepRow {
	return &stepRow{StepRecord: s, now: now}
}

func (s *stepRow) nodeList() *hostlist.Hostlist {
	if s.hosts == nil {
		h, err := hostlist.Parse(s.Nodes)
		if err != nil {
			Log.Debugf("Step %d.%d: bad node list %q: %v", s.JobID, s.StepID, s.Nodes, err)
			h = hostlist.New()
		}
		s.hosts = h
	}
	return s.hosts
}

func stepName(id int32) string {
	switch id {
	case slurm.StepBatch:
		return "batch"
	case slurm.StepExtern:
		return "extern"
	case slurm.StepInteractive:
		return "interactive"
	default:
		return strconv.FormatInt(int64(id), 10)
	}
}

// The server's numbering of the special steps, which places them after the numbered steps.
func stepOrdinal(id int32) uint32 {
	switch id {
	case slurm.StepInteractive:
		return 0xfffffffa
	case slurm.StepBatch:
		return 0xfffffffb
	case slurm.StepExtern:
		return 0xfffffffc
	default:
		return uint32(id)
	}
}

func stepIDString(s *slurm.StepRecord) string {
	if s.ArrayJobID != 0 && s.ArrayTaskID != slurm.NoVal {
		return strconv.FormatUint(uint64(s.ArrayJobID), 10) + "_" +
			strconv.FormatUint(uint64(s.ArrayTaskID), 10) + "." + stepName(s.StepID)
	}
	return strconv.FormatUint(uint64(s.JobID), 10) + "." + stepName(s.StepID)
}

func stepTimeUsed(s *stepRow) int64 {
	if s.StartTime == slurm.TimeUnset || s.StartTime > s.now {
		return 0
	}
	return s.now - s.StartTime
}

var stepFields = table.NewRegistry([]table.Field[stepRow]{
	{Code: 'A', Name: "numtasks", Header: "TASKS", Help: "Number of tasks",
		Cell: func(s *stepRow) string { return count(s.NumTasks) }},
	{Code: 'C', Name: "numcpus", Header: "CPUS", Help: "Number of CPUs",
		Cell: func(s *stepRow) string { return count(s.NumCPUs) }},
	{Code: 'D', Name: "numnodes", Header: "NODES", Help: "Number of nodes",
		Cell: func(s *stepRow) string { return strconv.Itoa(s.nodeList().Count()) }},
	{Code: 'i', Name: "stepid", Header: "STEPID", Help: "Job and step id",
		Cell: func(s *stepRow) string { return stepIDString(s.StepRecord) }},
	{Code: 'j', Name: "stepname", Header: "NAME", Help: "Step name",
		Cell: func(s *stepRow) string { return s.Name }},
	{Code: 'l', Name: "timelimit", Header: "TIME_LIMIT", Help: "Time limit",
		Cell: func(s *stepRow) string { return slurm.MinsToTime(s.TimeLimit) }},
	{Code: 'M', Name: "timeused", Header: "TIME", Help: "Time used",
		Cell: func(s *stepRow) string { return slurm.SecsToTime(stepTimeUsed(s)) }},
	{Code: 'N', Name: "nodelist", Header: "NODELIST", Help: "Nodes",
		Cell: func(s *stepRow) string { return s.nodeList().Ranged() }},
	{Code: 'P', Name: "partition", Header: "PARTITION", Help: "Partition",
		Cell: func(s *stepRow) string { return s.Partition }},
	{Code: 'S', Name: "starttime", Header: "START_TIME", Help: "Start time",
		Cell: func(s *stepRow) string { return timestamp(s.StartTime) }},
	{Code: 'u', Name: "username", Header: "USER", Help: "User name",
		Cell: func(s *stepRow) string { return userName(s.UserID, s.UserName) }},
	{Code: 'U', Name: "userid", Header: "UID", Help: "User id",
		Cell: func(s *stepRow) string { return count(s.UserID) }},
})

func init() {
	stepFields.Alias("name", 'j')
	stepFields.Alias("user", 'u')
}

const (
	defaultStepFormat     = "%.15i %.8j %.9P %.8u %.9M %N"
	defaultStepLongFormat = "%.15i %.8j %.9P %.8u %.9l %.9M %N"
	defaultStepSort       = "P,i"
)
