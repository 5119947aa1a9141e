package hostlist

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	h, err := Parse("node[01-03,07],login1,rack[1-2]n[8-10]")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"node01", "node02", "node03", "node07", "login1",
		"rack1n8", "rack1n9", "rack1n10", "rack2n8", "rack2n9", "rack2n10",
	}
	if !slices.Equal(h.Hosts(), want) {
		t.Fatalf("Parse: %v", h.Hosts())
	}
	if h.Count() != len(want) {
		t.Fatalf("Count: %d", h.Count())
	}

	h, err = Parse("")
	if err != nil || h.Count() != 0 {
		t.Fatalf("Empty: %v %v", h, err)
	}

	for _, bad := range []string{"a[1-", "a[3-1]", "a[]", "a[x]", "a,,b", "a,", ",a", "a]", "a[1[2]]"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Should fail: %q", bad)
		}
	}
}

func TestRanged(t *testing.T) {
	cases := []struct {
		hosts []string
		want  string
	}{
		{[]string{"node01", "node02", "node03", "node04", "node07"}, "node[01-04,07]"},
		{[]string{"node07", "node01", "node03", "node02", "node04", "node03"}, "node[01-04,07]"},
		{[]string{"linux1", "linux12", "linux2"}, "linux[1-2,12]"},
		{[]string{"c6-1", "c66-4", "cesium"}, "c6-1,c66-4,cesium"},
		{[]string{"gpu-4-ib", "gpu-5-ib", "gpu-6-ib"}, "gpu-[4-6]-ib"},
		{[]string{"n09", "n10", "n11"}, "n[09-11]"},
		{[]string{"n8", "n9", "n10"}, "n[8-10]"},
		{[]string{}, ""},
	}
	for _, c := range cases {
		h := New()
		for _, n := range c.hosts {
			h.PushHost(n)
		}
		if s := h.Ranged(); s != c.want {
			t.Fatalf("Ranged %v: got %q want %q", c.hosts, s, c.want)
		}
		// Round trip
		back, err := Parse(h.Ranged())
		if err != nil {
			t.Fatal(err)
		}
		h.Uniq()
		for _, n := range h.Hosts() {
			if !back.Contains(n) {
				t.Fatalf("Round trip %v lost %s", c.hosts, n)
			}
		}
		if back.Count() != h.Count() {
			t.Fatalf("Round trip %v: %v", c.hosts, back.Hosts())
		}
	}
}

func TestSortUniq(t *testing.T) {
	h, _ := Parse("linux12,linux2,linux1,linux2,alpha")
	h.Sort()
	if !slices.Equal(h.Hosts(), []string{"alpha", "linux1", "linux2", "linux2", "linux12"}) {
		t.Fatalf("Sort: %v", h.Hosts())
	}
	h.Uniq()
	if !slices.Equal(h.Hosts(), []string{"alpha", "linux1", "linux2", "linux12"}) {
		t.Fatalf("Uniq: %v", h.Hosts())
	}
}

func TestPopShift(t *testing.T) {
	h, _ := Parse("n[1-3]")
	if x, ok := h.Shift(); !ok || x != "n1" {
		t.Fatalf("Shift: %s", x)
	}
	if x, ok := h.Pop(); !ok || x != "n3" {
		t.Fatalf("Pop: %s", x)
	}
	if h.Contains("n1") || !h.Contains("n2") {
		t.Fatal("Contains")
	}
	h.Pop()
	if _, ok := h.Pop(); ok {
		t.Fatal("Pop on empty")
	}
	if _, ok := h.Shift(); ok {
		t.Fatal("Shift on empty")
	}
}

func TestIntersectsMin(t *testing.T) {
	a, _ := Parse("c[1-4]")
	b, _ := Parse("c4,d1")
	c, _ := Parse("d[2-3]")
	if !a.Intersects(b) || !b.Intersects(a) {
		t.Fatal("Should intersect")
	}
	if a.Intersects(c) || a.Intersects(nil) {
		t.Fatal("Should not intersect")
	}
	m, _ := Parse("linux12,linux2,linux10")
	if m.Min() != "linux2" {
		t.Fatalf("Min: %s", m.Min())
	}
	if m.Hosts()[0] != "linux12" {
		t.Fatal("Min modified the list")
	}
}
