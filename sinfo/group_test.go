package sinfo

import (
	"slices"
	"strings"
	"testing"

	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/table"
)

func render(t *testing.T, rows []*GroupedRow) string {
	t.Helper()
	var out strings.Builder
	table.SortStable(rows, []table.SortKey{{Code: 'P', Enumerated: true}, {Code: 'N'}}, comparators())
	if err := table.Render(&out, table.ParseFormat("%P %t %D %F %c %N"), nodeFields, rows, false); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestGroupRoundTrip(t *testing.T) {
	snap := cluster()
	rows := Group(snap, GroupOptions{State: true}, nil)
	names := make([]string, 0)
	for _, r := range rows {
		names = append(names, r.Nodes.Hosts()...)
	}
	want := make([]string, 0)
	for _, n := range snap.Nodes {
		for _, p := range n.Partitions {
			if p != "secret" {
				want = append(want, n.Name)
			}
		}
		if len(n.Partitions) == 0 {
			want = append(want, n.Name)
		}
	}
	slices.Sort(names)
	slices.Sort(want)
	if !slices.Equal(names, want) {
		t.Fatalf("Names %v want %v", names, want)
	}
}

func TestGroupIdempotent(t *testing.T) {
	snap := cluster()
	opts := GroupOptions{Codes: []byte{'c'}, State: true}
	rows := Group(snap, opts, nil)
	first := render(t, rows)

	// Regroup the nodes in the order of the rows they ended up in.
	byName := make(map[string]*slurm.NodeRecord)
	for _, n := range snap.Nodes {
		byName[n.Name] = n
	}
	regrouped := &slurm.NodeSnapshot{Cluster: snap.Cluster, Partitions: snap.Partitions}
	seen := make(map[string]bool)
	for _, r := range rows {
		for _, h := range r.Nodes.Hosts() {
			if !seen[h] {
				seen[h] = true
				regrouped.Nodes = append(regrouped.Nodes, byName[h])
			}
		}
	}
	if second := render(t, Group(regrouped, opts, nil)); second != first {
		t.Fatalf("Regrouped\n%s\nwas\n%s", second, first)
	}
}

func TestGroupCounts(t *testing.T) {
	rows := Group(cluster(), GroupOptions{ShowHidden: true}, nil)
	counts := make(map[string][4]uint32)
	for _, r := range rows {
		counts[r.PartName] = [4]uint32{r.Allocated, r.Idle, r.Other, r.Total}
	}
	want := map[string][4]uint32{
		"normal":    {2, 2, 0, 4},
		"gpu":       {1, 0, 1, 2},
		"empty":     {0, 0, 0, 0},
		"secret":    {0, 1, 0, 1},
		NoPartition: {0, 1, 0, 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("Counts %v", counts)
	}
	for p, c := range want {
		if counts[p] != c {
			t.Fatalf("Partition %s: %v", p, counts[p])
		}
	}
}

func TestGroupKeep(t *testing.T) {
	rows := Group(cluster(), GroupOptions{Partitions: map[string]bool{"normal": true}},
		func(n *slurm.NodeRecord) bool { return n.Name != "c3" })
	if len(rows) != 1 || rows[0].Nodes.Ranged() != "c[1-2,4]" || rows[0].CPUs.format(u32) != "16" {
		t.Fatalf("Rows %+v", rows)
	}
	rows = Group(cluster(), GroupOptions{Partitions: map[string]bool{"normal": true}}, nil)
	if rows[0].CPUs.format(u32) != "16-32" {
		t.Fatalf("CPUs %s", rows[0].CPUs.format(u32))
	}
}

func TestNodeOriented(t *testing.T) {
	rows := Group(cluster(), GroupOptions{NodeOriented: true}, nil)
	// A row per node and shown partition (c4 is in two), and one for the empty partition.
	if len(rows) != 8 {
		t.Fatalf("Rows %d", len(rows))
	}
	for _, r := range rows {
		if r.Total > 1 {
			t.Fatalf("Row %s %s", r.PartName, r.Nodes)
		}
	}
}
