// Package sonar turns Sonar's "cluster" and "jobs" data envelopes into snapshots.  The envelopes
// are read from files here and from Kafka by source/kafka.
//
// Sonar samples the cluster periodically, so the envelope time is the change token.  The data are
// less rich than what the Slurm controller reports: node hardware, reasons and partition limits
// are absent and render as empty or zero.

package sonar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"

	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
)

var ErrNoData = errors.New("Envelope carries no data")

func parseTime(s string) int64 {
	if s == "" {
		return slurm.TimeUnset
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return slurm.TimeUnset
	}
	return t.Unix()
}

func envelopeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("Bad envelope time %q: %w", s, err)
	}
	return t, nil
}

func expandHosts(expr string) ([]string, error) {
	h, err := hostlist.Parse(expr)
	if err != nil {
		return nil, err
	}
	return h.Hosts(), nil
}

// NodeSnapshot converts a cluster envelope.  Node groups are expanded to one record per node.
func NodeSnapshot(r *newfmt.ClusterEnvelope) (*slurm.NodeSnapshot, error) {
	if r.Data == nil {
		return nil, ErrNoData
	}
	d := &r.Data.Attributes
	t, err := envelopeTime(string(d.Time))
	if err != nil {
		return nil, err
	}
	snap := &slurm.NodeSnapshot{
		LastUpdate: t,
		Cluster:    string(d.Cluster),
		Nodes:      make([]*slurm.NodeRecord, 0),
		Partitions: make([]*slurm.PartitionRecord, 0, len(d.Partitions)),
	}
	for _, group := range d.Nodes {
		state := slurm.ParseNodeStateString(strings.Join(group.States, "+"))
		for _, expr := range group.Names {
			names, err := expandHosts(string(expr))
			if err != nil {
				return nil, fmt.Errorf("Node list %s: %w", expr, err)
			}
			for _, name := range names {
				snap.Nodes = append(snap.Nodes, &slurm.NodeRecord{
					Name:      name,
					Hostname:  name,
					Address:   name,
					State:     state,
					ReasonUID: slurm.NoVal,
					CPULoad:   slurm.NoVal,
					FreeMem:   slurm.NoVal64,
				})
			}
		}
	}
	for i, p := range d.Partitions {
		exprs := make([]string, len(p.Nodes))
		for j, n := range p.Nodes {
			exprs[j] = string(n)
		}
		snap.Partitions = append(snap.Partitions, &slurm.PartitionRecord{
			Name:        string(p.Name),
			Index:       i,
			Default:     i == 0,
			Nodes:       strings.Join(exprs, ","),
			Avail:       slurm.PartitionUp,
			MaxNodes:    slurm.Infinite,
			MaxTime:     slurm.Infinite,
			DefaultTime: slurm.NoVal,
			MaxShare:    1,
		})
	}
	if err := source.MergePartitionMembership(snap, expandHosts); err != nil {
		return nil, err
	}
	return snap, nil
}

// JobSnapshots converts a jobs envelope.  Sonar reports each step as its own record next to the
// job's record, which has an empty step name.
func JobSnapshots(r *newfmt.JobsEnvelope) (*slurm.JobSnapshot, *slurm.StepSnapshot, error) {
	if r.Errors != nil || r.Data == nil {
		return nil, nil, ErrNoData
	}
	t, err := envelopeTime(string(r.Data.Attributes.Time))
	if err != nil {
		return nil, nil, err
	}
	jobs := &slurm.JobSnapshot{LastUpdate: t, Jobs: make([]*slurm.JobRecord, 0)}
	steps := &slurm.StepSnapshot{LastUpdate: t, Steps: make([]*slurm.StepRecord, 0)}
	for i := range r.Data.Attributes.SlurmJobs {
		job := &r.Data.Attributes.SlurmJobs[i]
		timelimit := slurm.NoVal
		if job.Timelimit >= newfmt.ExtendedUintBase {
			v, _ := job.Timelimit.ToUint()
			timelimit = uint32(min(v, uint64(slurm.NoVal-1)))
		}
		arrayTask := slurm.NoVal
		if job.ArrayJobID != 0 {
			arrayTask = uint32(job.ArrayTaskID)
		}
		nodes := make([]string, 0, len(job.NodeList))
		for _, n := range job.NodeList {
			// sacct's placeholder for pending jobs
			if n != "None assigned" {
				nodes = append(nodes, n)
			}
		}
		if job.JobStep != "" {
			stepID, ok := parseStepID(job.JobStep)
			if !ok {
				continue
			}
			steps.Steps = append(steps.Steps, &slurm.StepRecord{
				JobID:       uint32(job.JobID),
				StepID:      stepID,
				ArrayJobID:  uint32(job.ArrayJobID),
				ArrayTaskID: arrayTask,
				UserID:      slurm.NoVal,
				UserName:    job.UserName,
				Partition:   job.Partition,
				Nodes:       strings.Join(nodes, ","),
				StartTime:   parseTime(string(job.Start)),
				TimeLimit:   timelimit,
				Name:        job.JobName,
				NumCPUs:     uint32(job.ReqCPUS),
			})
			continue
		}
		state, flags := jobState(string(job.JobState))
		jobs.Jobs = append(jobs.Jobs, &slurm.JobRecord{
			JobID:         uint32(job.JobID),
			ArrayJobID:    uint32(job.ArrayJobID),
			ArrayTaskID:   arrayTask,
			HetJobID:      uint32(job.HetJobID),
			HetJobOffset:  uint32(job.HetJobOffset),
			UserID:        slurm.NoVal,
			UserName:      job.UserName,
			GroupID:       slurm.NoVal,
			Name:          job.JobName,
			Partition:     job.Partition,
			Account:       job.Account,
			Reservation:   job.Reservation,
			State:         state,
			StateFlags:    flags,
			SubmitTime:    parseTime(string(job.SubmitTime)),
			StartTime:     parseTime(string(job.Start)),
			EndTime:       parseTime(string(job.End)),
			TimeLimit:     timelimit,
			NumNodes:      uint32(job.ReqNodes),
			NumCPUs:       uint32(job.ReqCPUS),
			MinMemory:     uint64(job.ReqMemoryPerNode),
			Nodes:         strings.Join(nodes, ","),
			OverSubscribe: "OK",
			Sockets:       slurm.NoVal,
			Cores:         slurm.NoVal,
			Threads:       slurm.NoVal,
		})
	}
	return jobs, steps, nil
}

// sacct writes e.g. "CANCELLED by 1000".
func jobState(s string) (slurm.JobState, slurm.JobFlags) {
	name, _, _ := strings.Cut(s, " ")
	spec, err := slurm.ParseJobState(name)
	if err != nil || !spec.HasState {
		return slurm.JobPending, spec.Flag
	}
	if spec.State == slurm.JobCompleting {
		return slurm.JobCompleting, slurm.FlagCompleting
	}
	return spec.State, 0
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
	// Het job steps are "0+1", take the step number.
	s, _, _ = strings.Cut(s, "+")
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return 0, false
	}
	return int32(n), true
}
