package slurm

import (
	"testing"
	"time"
)

func TestSecsToTime(t *testing.T) {
	cases := map[int64]string{
		0:       "0:00",
		59:      "0:59",
		3600:    "1:00:00",
		3661:    "1:01:01",
		86400:   "1-00:00:00",
		200000:  "2-07:33:20",
		-1:      "INVALID",
	}
	for secs, want := range cases {
		if s := SecsToTime(secs); s != want {
			t.Fatalf("SecsToTime(%d) = %q, want %q", secs, s, want)
		}
	}
	if MinsToTime(60) != "1:00:00" || MinsToTime(Infinite) != "UNLIMITED" || MinsToTime(NoVal) != "NOT_SET" {
		t.Fatal("MinsToTime")
	}
}

func TestFormatTimestamp(t *testing.T) {
	saved := TimeZone
	defer func() { TimeZone = saved }()
	TimeZone = time.UTC
	if s := FormatTimestamp(1700000000); s != "2023-11-14T22:13:20" {
		t.Fatal(s)
	}
}

func TestJobStates(t *testing.T) {
	for _, name := range []string{"pd", "PENDING", "Pending"} {
		spec, err := ParseJobState(name)
		if err != nil || !spec.Matches(JobPending, 0) || spec.Matches(JobRunning, 0) {
			t.Fatalf("ParseJobState(%s)", name)
		}
	}
	cg, err := ParseJobState("cg")
	if err != nil {
		t.Fatal(err)
	}
	if !cg.Matches(JobCompleting, 0) || !cg.Matches(JobComplete, FlagCompleting) || cg.Matches(JobComplete, 0) {
		t.Fatal("COMPLETING in both roles")
	}
	cf, err := ParseJobState("CONFIGURING")
	if err != nil || !cf.Matches(JobRunning, FlagConfiguring) || cf.Matches(JobRunning, 0) {
		t.Fatal("Flag spec")
	}
	if _, err := ParseJobState("OOM"); err != nil {
		t.Fatal("OOM")
	}
	if _, err := ParseJobState("bogus"); err == nil {
		t.Fatal("bogus")
	}
	if JobStateString(JobComplete, FlagCompleting) != "COMPLETING" || JobStateCompact(JobRunning, 0) != "R" {
		t.Fatal("Display")
	}
	all := AllJobStates()
	for s := JobPending; s <= JobCompleting; s++ {
		found := false
		for _, spec := range all {
			found = found || spec.Matches(s, 0)
		}
		if !found {
			t.Fatalf("All misses %v", s)
		}
	}
}

func TestNodeStates(t *testing.T) {
	cases := []struct {
		encoded string
		long    string
		compact string
	}{
		{"IDLE", "idle", "idle"},
		{"MIXED+DRAIN", "draining", "drng"},
		{"IDLE+DRAIN", "drained", "drain"},
		{"DOWN+NOT_RESPONDING", "down*", "down*"},
		{"IDLE+POWERED_DOWN", "idle~", "idle~"},
		{"ALLOCATED+FAIL", "failing", "failg"},
		{"IDLE+MAINT", "maint", "maint"},
		{"ALLOCATED+COMPLETING", "completing", "comp"},
		{"IDLE+RESERVED", "reserved", "resv"},
		{"IDLE+PLANNED", "planned", "plnd"},
		{"FUTURE", "future", "futr"},
	}
	for _, c := range cases {
		s := ParseNodeStateString(c.encoded)
		if s.String() != c.long || s.CompactString() != c.compact {
			t.Fatalf("%s: %s %s", c.encoded, s.String(), s.CompactString())
		}
	}

	drain, err := ParseNodeState("drain")
	if err != nil {
		t.Fatal(err)
	}
	if !drain.Matches(ParseNodeStateString("IDLE+DRAIN")) || !drain.Matches(ParseNodeStateString("MIXED+DRAIN")) {
		t.Fatal("drain matches drained and draining")
	}
	drng, _ := ParseNodeState("DRNG")
	if drng.Matches(ParseNodeStateString("IDLE+DRAIN")) {
		t.Fatal("drng matched drained")
	}
	idle, _ := ParseNodeState("Idle")
	if !idle.Matches(NodeIdle) || idle.Matches(NodeAllocated) {
		t.Fatal("idle")
	}
	if _, err := ParseNodeState("sleepy"); err == nil {
		t.Fatal("sleepy")
	}

	if !NodeMixed.IsAllocated() || NodeIdle.IsAllocated() || !NodeIdle.IsIdle() {
		t.Fatal("Summary classes")
	}
	if (NodeIdle | NodeDrain).IsIdle() || (NodeAllocated | NodeDrain).IsAllocated() {
		t.Fatal("Drained nodes are other")
	}
}
