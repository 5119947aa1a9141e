package slurmrest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
)

const jobsJSON = `{
  "last_update": {"set": true, "infinite": false, "number": 1700000100},
  "errors": [],
  "jobs": [
    {"job_id": 12, "name": "sim", "user_id": 1000, "user_name": "alice", "partition": "normal",
     "job_state": ["RUNNING"], "time_limit": {"set": true, "number": 60},
     "start_time": {"set": true, "number": 1700000000}, "node_count": {"set": true, "number": 2},
     "nodes": "c[1-2]", "array_job_id": {"set": true, "number": 0},
     "array_task_id": {"set": false, "number": 0}, "shared": ["none"]},
    {"job_id": 13, "name": "post", "user_id": 1001, "partition": "normal",
     "job_state": ["PENDING"], "state_reason": "Resources",
     "time_limit": {"set": false, "infinite": true, "number": 0},
     "array_job_id": {"set": true, "number": 10}, "array_task_id": {"set": true, "number": 5}},
    {"job_id": 14, "job_state": ["COMPLETING"], "priority": 7}
  ]
}`

const nodesJSON = `{
  "last_update": {"set": true, "number": 1700000100},
  "nodes": [
    {"name": "c1", "state": ["MIXED", "DRAIN"], "cpus": 8, "real_memory": 1000,
     "reason": "disk", "reason_set_by_user": "root", "cpu_load": 150},
    {"name": "c2", "state": ["IDLE"], "cpus": 8, "partitions": ["normal"]}
  ]
}`

const partitionsJSON = `{
  "last_update": 1700000050,
  "partitions": [
    {"name": "normal", "nodes": {"configured": "c[1-2]", "total": 2},
     "flags": ["DEFAULT"], "partition": {"state": ["UP"]},
     "maximums": {"time": {"set": false, "infinite": true}, "nodes": {"set": true, "number": 2},
                  "oversubscribe": {"jobs": 4, "flags": ["force"]}}},
    {"name": "debug", "nodes": {"configured": "c2"}, "partition": {"state": ["DRAIN"]}}
  ]
}`

func newServer(t *testing.T, requests *[]*http.Request) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests = append(*requests, r)
		switch r.URL.Path {
		case "/slurm/v0.0.40/jobs":
			w.Write([]byte(jobsJSON))
		case "/slurm/v0.0.40/nodes":
			w.Write([]byte(nodesJSON))
		case "/slurm/v0.0.40/partitions":
			w.Write([]byte(partitionsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestJobs(t *testing.T) {
	var requests []*http.Request
	srv := newServer(t, &requests)
	defer srv.Close()

	c, err := New(srv.Client(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	c.SetCredentials("alice", "tok")
	snap, err := c.LoadJobs(context.Background(), time.Time{}, source.ShowAll)
	if err != nil {
		t.Fatal(err)
	}
	if snap.LastUpdate.Unix() != 1700000100 || len(snap.Jobs) != 3 {
		t.Fatalf("Snapshot %v %d", snap.LastUpdate, len(snap.Jobs))
	}
	j := snap.Jobs[0]
	if j.JobID != 12 || j.State != slurm.JobRunning || j.TimeLimit != 60 || j.NumNodes != 2 ||
		j.OverSubscribe != "NO" || j.IsArray() || j.ArrayTaskID != slurm.NoVal {
		t.Fatalf("Job %+v", j)
	}
	j = snap.Jobs[1]
	if j.State != slurm.JobPending || j.TimeLimit != slurm.Infinite || j.ArrayJobID != 10 ||
		j.ArrayTaskID != 5 || j.StateReason != "Resources" {
		t.Fatalf("Job %+v", j)
	}
	j = snap.Jobs[2]
	if !slurm.IsCompleting(j.State, j.StateFlags) || j.Priority != 7 {
		t.Fatalf("Job %+v", j)
	}

	r := requests[0]
	if r.Header.Get("X-SLURM-USER-TOKEN") != "tok" || r.Header.Get("X-SLURM-USER-NAME") != "alice" {
		t.Fatal("Credentials")
	}
	if r.URL.Query().Get("flags") != "SHOW_ALL" || r.URL.Query().Has("update_time") {
		t.Fatalf("Query %s", r.URL.RawQuery)
	}

	_, err = c.LoadJobs(context.Background(), snap.LastUpdate, 0)
	if !errors.Is(err, source.ErrNoChange) {
		t.Fatalf("Expected no change, got %v", err)
	}
	if requests[1].URL.Query().Get("update_time") != "1700000100" {
		t.Fatalf("Query %s", requests[1].URL.RawQuery)
	}
}

func TestNodes(t *testing.T) {
	var requests []*http.Request
	srv := newServer(t, &requests)
	defer srv.Close()

	c, err := New(srv.Client(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := c.LoadNodes(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Nodes) != 2 || len(snap.Partitions) != 2 {
		t.Fatalf("Snapshot %d %d", len(snap.Nodes), len(snap.Partitions))
	}
	c1 := snap.Nodes[0]
	if c1.State.Base() != slurm.NodeMixed || !c1.State.Has(slurm.NodeDrain) || c1.ReasonUser != "root" ||
		c1.CPULoad != 150 || c1.ReasonUID != slurm.NoVal {
		t.Fatalf("Node %+v", c1)
	}
	if strings.Join(c1.Partitions, ",") != "normal" {
		t.Fatalf("Partitions %v", c1.Partitions)
	}
	if strings.Join(snap.Nodes[1].Partitions, ",") != "normal,debug" {
		t.Fatalf("Partitions %v", snap.Nodes[1].Partitions)
	}
	p := snap.Partitions[0]
	if !p.Default || p.Avail != slurm.PartitionUp || p.MaxTime != slurm.Infinite ||
		p.MaxShare != 4|slurm.SharedForce || p.MaxNodes != 2 {
		t.Fatalf("Partition %+v", p)
	}
	p = snap.Partitions[1]
	if p.Default || p.Avail != slurm.PartitionDrain || p.TotalNodes != 1 || p.Index != 1 {
		t.Fatalf("Partition %+v", p)
	}

	_, err = c.LoadNodes(context.Background(), snap.LastUpdate, 0)
	if !errors.Is(err, source.ErrNoChange) {
		t.Fatalf("Expected no change, got %v", err)
	}
}

func TestErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/jobs") {
			w.Write([]byte(`{"errors": [{"description": "Access denied", "error_number": 1}]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(srv.Client(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.LoadJobs(context.Background(), time.Time{}, 0); err == nil || !strings.Contains(err.Error(), "Access denied") {
		t.Fatalf("Error %v", err)
	}
	if _, err := c.LoadNodes(context.Background(), time.Time{}, 0); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("Error %v", err)
	}
	if _, err := c.LoadSteps(context.Background(), time.Time{}, 0); !errors.Is(err, source.ErrNotSupported) {
		t.Fatalf("Error %v", err)
	}
	if _, err := New(nil, "ftp://x"); err == nil {
		t.Fatal("Scheme")
	}
}
