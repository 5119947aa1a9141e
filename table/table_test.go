package table

import (
	"slices"
	"strings"
	"testing"
)

type thing struct {
	name string
	n    int
}

var things = NewRegistry([]Field[thing]{
	{Code: 'n', Name: "name", Header: "NAME", Cell: func(r *thing) string { return r.name }},
	{Code: 'c', Name: "count", Header: "COUNT", Cell: func(r *thing) string { return strings.Repeat("x", r.n) }},
})

func TestParseFormat(t *testing.T) {
	spec := ParseFormat("pre %.5n|%-3c %10z%")
	if len(spec) != 4 {
		t.Fatalf("Length %d: %v", len(spec), spec)
	}
	if spec[0].Code != 0 || spec[0].Prefix != "pre " {
		t.Fatalf("Prefix %v", spec[0])
	}
	if spec[1] != (FieldDescriptor{Code: 'n', Width: 5, RightJustify: true, Suffix: "|"}) {
		t.Fatalf("Field 1 %v", spec[1])
	}
	// "-" is not a width, so it becomes the code
	if spec[2].Code != '-' || spec[2].Suffix != "3c " {
		t.Fatalf("Field 2 %v", spec[2])
	}
	if spec[3].Code != 'z' || spec[3].Width != 10 || spec[3].RightJustify {
		t.Fatalf("Field 3 %v", spec[3])
	}
	if len(ParseFormat("")) != 0 {
		t.Fatal("Empty")
	}
	if s := ParseFormat("%.5n|%c").String(); s != "%.5n|%c" {
		t.Fatalf("String %q", s)
	}
	if !spec.Has('z') || spec.Has('q') || string(spec.Codes()) != "n-z" {
		t.Fatal("Has/Codes")
	}
}

func TestParseLongFormat(t *testing.T) {
	spec, err := ParseLongFormat("name:.8|,%Count", things.CodeForName)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec) != 2 || spec[0] != (FieldDescriptor{Code: 'n', Width: 8, RightJustify: true, Suffix: "|"}) {
		t.Fatalf("Long %v", spec)
	}
	if spec[1].Code != 'c' || spec[1].Width != DefaultLongWidth {
		t.Fatalf("Default width %v", spec[1])
	}
	if _, err := ParseLongFormat("name,bogus", things.CodeForName); err == nil {
		t.Fatal("Unknown name")
	}
}

func TestRender(t *testing.T) {
	spec := ParseFormat(">%.6n %3c<")
	if err := things.Validate(spec); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	rows := []*thing{{"ab", 1}, {"abcdefgh", 5}}
	if err := Render(&out, spec, things, rows, true); err != nil {
		t.Fatal(err)
	}
	want := ">  NAME COU<\n>    ab x  <\n>abcdef xxx<\n"
	if out.String() != want {
		t.Fatalf("Render\n%q\nwant\n%q", out.String(), want)
	}

	// Row width is the sum of the descriptor widths plus literal text
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		if len(line) != 1+6+1+3+1 {
			t.Fatalf("Width of %q", line)
		}
	}

	if err := things.Validate(ParseFormat("%n%q%w")); err == nil {
		t.Fatal("Validate")
	}
	out.Reset()
	WriteRow(&out, ParseFormat("%n %q|"), things, rows[0])
	if out.String() != "ab \n" {
		t.Fatalf("Unknown code %q", out.String())
	}
}

func TestParseSortSpec(t *testing.T) {
	valid := func(c byte) bool { return strings.IndexByte("Ptpi", c) >= 0 }
	keys, err := ParseSortSpec("+P,t,-p", valid)
	if err != nil {
		t.Fatal(err)
	}
	want := []SortKey{{Code: 'P'}, {Code: 't'}, {Code: 'p', Reverse: true}}
	if !slices.Equal(keys, want) {
		t.Fatalf("Keys %v", keys)
	}
	keys, err = ParseSortSpec("#-P,-#t", valid)
	if err != nil || !keys[0].Enumerated || !keys[0].Reverse || !keys[1].Enumerated || !keys[1].Reverse {
		t.Fatalf("Combined prefixes %v %v", keys, err)
	}
	if _, err := ParseSortSpec("P,x", valid); err == nil {
		t.Fatal("Unknown letter")
	}
	if _, err := ParseSortSpec("P,-", valid); err == nil {
		t.Fatal("Dangling prefix")
	}
}

func TestSortStable(t *testing.T) {
	rows := []*thing{{"b", 2}, {"a", 2}, {"c", 1}, {"a", 1}}
	cmps := map[byte]Comparator[thing]{
		'n': func(SortKey) func(a, b *thing) int {
			return func(a, b *thing) int { return strings.Compare(a.name, b.name) }
		},
		'c': func(SortKey) func(a, b *thing) int {
			return func(a, b *thing) int { return a.n - b.n }
		},
	}
	SortStable(rows, []SortKey{{Code: 'c', Reverse: true}, {Code: 'n'}}, cmps)
	got := ""
	for _, r := range rows {
		got += r.name
	}
	if got != "abac" {
		t.Fatalf("Sorted %s", got)
	}

	// Stability: equal keys keep input order
	rows = []*thing{{"x", 1}, {"y", 1}, {"z", 0}}
	SortStable(rows, []SortKey{{Code: 'c'}}, cmps)
	if rows[0].name != "z" || rows[1].name != "x" || rows[2].name != "y" {
		t.Fatal("Not stable")
	}
}

func TestNaturalCompare(t *testing.T) {
	in := []string{"linux12", "linux2", "linux1", "a103", "a19", "a1b", "node", "node01x", "node1y"}
	slices.SortFunc(in, NaturalCompare)
	want := []string{"a1b", "a19", "a103", "linux1", "linux2", "linux12", "node", "node01x", "node1y"}
	if !slices.Equal(in, want) {
		t.Fatalf("Natural %v", in)
	}
	if NaturalCompare("abc", "abc") != 0 || NaturalCompare("abc", "abd") >= 0 {
		t.Fatal("Plain")
	}
}
