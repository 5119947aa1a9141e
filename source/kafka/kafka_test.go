package kafka

import (
	"strings"
	"testing"
)

const older = `{"meta": {"producer": "sonar", "version": "0.16.0"}, "data": {"type": "cluster", "attributes": {"time": "2025-03-01T10:00:00Z", "cluster": "fox", "slurm": true, "partitions": [{"name": "normal", "nodes": ["c[1-2]"]}], "nodes": [{"names": ["c[1-2]"], "states": ["IDLE"]}]}}}`

const newer = `{"meta": {"producer": "sonar", "version": "0.16.0"}, "data": {"type": "cluster", "attributes": {"time": "2025-03-01T10:05:00Z", "cluster": "fox", "slurm": true, "partitions": [{"name": "normal", "nodes": ["c[1-3]"]}], "nodes": [{"names": ["c[1-3]"], "states": ["MIXED"]}]}}}`

func TestTopics(t *testing.T) {
	if ClusterTopic("fox") != "fox.cluster" || JobsTopic("fox") != "fox.jobs" {
		t.Fatal(ClusterTopic("fox"), JobsTopic("fox"))
	}
	if _, err := Open("localhost:9092", ""); err == nil {
		t.Fatal("Cluster required")
	}
}

func TestDispatch(t *testing.T) {
	c := newConsumer("fox")
	if err := c.dispatch("fox.cluster", []byte(newer)); err != nil {
		t.Fatal(err)
	}
	if err := c.dispatch("fox.cluster", []byte(older)); err != nil {
		t.Fatal(err)
	}
	if c.nodes == nil || len(c.nodes.Nodes) != 3 {
		t.Fatalf("Expected the newer snapshot to be kept")
	}
	if err := c.dispatch("fox.sample", []byte(older)); err == nil || !strings.Contains(err.Error(), "No handler") {
		t.Fatalf("Error %v", err)
	}
	if err := c.dispatch("fox.jobs", []byte("{")); err == nil {
		t.Fatal("Expected decode error")
	}
	if c.jobs != nil {
		t.Fatal("No jobs expected")
	}
}
