package sonar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"

	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
)

const clusterData = `{"meta": {"producer": "sonar", "version": "0.16.0"}, "data": {"type": "cluster", "attributes": {"time": "2025-03-01T10:00:00Z", "cluster": "fox", "slurm": true, "partitions": [{"name": "normal", "nodes": ["c[1-3]"]}], "nodes": [{"names": ["c[1-2]"], "states": ["IDLE"]}]}}}
{"meta": {"producer": "sonar", "version": "0.16.0"}, "data": {"type": "cluster", "attributes": {"time": "2025-03-01T10:05:00Z", "cluster": "fox", "slurm": true, "partitions": [{"name": "normal", "nodes": ["c[1-3]"]}, {"name": "gpu", "nodes": ["c3"]}], "nodes": [{"names": ["c[1-2]"], "states": ["MIXED"]}, {"names": ["c3"], "states": ["IDLE", "DRAIN"]}]}}}
`

func jobsData() string {
	limit := fmt.Sprint(newfmt.ExtendedUintBase + 60)
	return `{"meta": {"producer": "sonar", "version": "0.16.0"}, "data": {"type": "jobs", "attributes": {"time": "2025-03-01T10:05:00Z", "cluster": "fox", "slurm_jobs": [` +
		`{"job_id": 12, "job_step": "", "job_name": "sim", "job_state": "RUNNING", "user_name": "alice", "account": "proj", "partition": "normal", "nodes": ["c[1-2]"], "start_time": "2025-03-01T09:00:00Z", "submit_time": "2025-03-01T08:00:00Z", "time_limit": ` + limit + `, "requested_cpus": 16, "requested_node_count": 2},` +
		`{"job_id": 12, "job_step": "batch", "job_name": "batch", "job_state": "RUNNING", "user_name": "alice", "partition": "normal", "nodes": ["c1"], "start_time": "2025-03-01T09:00:00Z"},` +
		`{"job_id": 12, "job_step": "0", "job_name": "sim", "job_state": "RUNNING", "user_name": "alice", "partition": "normal", "nodes": ["c[1-2]"], "start_time": "2025-03-01T09:01:00Z"},` +
		`{"job_id": 13, "job_step": "", "job_name": "post", "job_state": "PENDING", "user_name": "bob", "partition": "normal", "nodes": ["None assigned"], "array_job_id": 13, "array_task_id": 4}` +
		`]}}}
`
}

func writeFixtures(t *testing.T) string {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ClusterFile), []byte(clusterData), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, JobsFile), []byte(jobsData()), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestFilesNodes(t *testing.T) {
	f, err := NewFiles(writeFixtures(t))
	if err != nil {
		t.Fatal(err)
	}
	snap, err := f.LoadNodes(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Cluster != "fox" || snap.LastUpdate.Unix() != 1740823500 {
		t.Fatalf("Snapshot %s %v", snap.Cluster, snap.LastUpdate)
	}
	if len(snap.Nodes) != 3 || len(snap.Partitions) != 2 {
		t.Fatalf("Counts %d %d", len(snap.Nodes), len(snap.Partitions))
	}
	c3 := snap.Nodes[2]
	if c3.Name != "c3" || c3.State.Base() != slurm.NodeIdle || !c3.State.Has(slurm.NodeDrain) {
		t.Fatalf("Node %+v", c3)
	}
	if strings.Join(c3.Partitions, ",") != "normal,gpu" {
		t.Fatalf("Partitions %v", c3.Partitions)
	}
	if !snap.Partitions[0].Default || snap.Partitions[1].Default || snap.Partitions[1].TotalNodes != 1 {
		t.Fatalf("Partitions %+v %+v", snap.Partitions[0], snap.Partitions[1])
	}

	_, err = f.LoadNodes(context.Background(), snap.LastUpdate, 0)
	if !errors.Is(err, source.ErrNoChange) {
		t.Fatalf("Expected no change: %v", err)
	}
}

func TestFilesJobs(t *testing.T) {
	f, err := NewFiles(writeFixtures(t))
	if err != nil {
		t.Fatal(err)
	}
	jobs, err := f.LoadJobs(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs.Jobs) != 2 {
		t.Fatalf("Jobs %d", len(jobs.Jobs))
	}
	j := jobs.Jobs[0]
	if j.JobID != 12 || j.State != slurm.JobRunning || j.TimeLimit != 60 || j.Nodes != "c[1-2]" ||
		j.UserName != "alice" || j.IsArray() || j.NumCPUs != 16 {
		t.Fatalf("Job %+v", j)
	}
	j = jobs.Jobs[1]
	if j.State != slurm.JobPending || j.Nodes != "" || j.ArrayJobID != 13 || j.ArrayTaskID != 4 ||
		j.StartTime != slurm.TimeUnset || j.TimeLimit != slurm.NoVal {
		t.Fatalf("Job %+v", j)
	}

	steps, err := f.LoadSteps(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps.Steps) != 2 || steps.Steps[0].StepID != slurm.StepBatch || steps.Steps[1].StepID != 0 {
		t.Fatalf("Steps %+v", steps.Steps)
	}
}

func TestStepIDs(t *testing.T) {
	for _, c := range []struct {
		in string
		id int32
		ok bool
	}{
		{"batch", slurm.StepBatch, true},
		{"extern", slurm.StepExtern, true},
		{"3", 3, true},
		{"0+1", 0, true},
		{"x", 0, false},
	} {
		id, ok := parseStepID(c.in)
		if id != c.id || ok != c.ok {
			t.Fatalf("%s: %d %v", c.in, id, ok)
		}
	}
	if s, f := jobState("CANCELLED by 1000"); s != slurm.JobCancelled || f != 0 {
		t.Fatalf("State %v", s)
	}
}

func TestMissing(t *testing.T) {
	if _, err := NewFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("Expected error")
	}
}
