package cli

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/source"
)

func TestListAndCounter(t *testing.T) {
	var l List
	l.Default("a,b")
	if l.IsSet() || !slices.Equal(l.Items, []string{"a", "b"}) {
		t.Fatalf("Default %v", l.Items)
	}
	l.Set("c, d")
	l.Set("e")
	if !l.IsSet() || l.String() != "c,d,e" {
		t.Fatalf("Set %q", l.String())
	}
	l.Default("x")
	if l.String() != "c,d,e" {
		t.Fatalf("Default after Set %q", l.String())
	}

	c := NewCLI("test")
	c.Group("application-control")
	var v Counter
	var b bool
	c.Var(&v, "verbose", "v", "", "")
	c.BoolVar(&b, "bool", "b", "")
	if err := c.Parse([]string{"-v", "-b", "-v", "--verbose"}); err != nil {
		t.Fatal(err)
	}
	if v != 3 || !b {
		t.Fatalf("Counter %d bool %v", v, b)
	}
}

func TestOptionalArg(t *testing.T) {
	for _, test := range []struct {
		in, out []string
	}{
		{[]string{"-j"}, []string{"--jobs="}},
		{[]string{"-j", "1,2", "-h"}, []string{"--jobs=1,2", "-h"}},
		{[]string{"--jobs", "-h"}, []string{"--jobs=", "-h"}},
		{[]string{"--jobs=3"}, []string{"--jobs=3"}},
		{[]string{"--", "-j", "x"}, []string{"--", "-j", "x"}},
	} {
		if got := OptionalArg(test.in, "jobs", "-j", "--jobs"); !slices.Equal(got, test.out) {
			t.Fatalf("%v: %v", test.in, got)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("SQUEUE_FORMAT", "")
	t.Setenv("SQUEUE_FORMAT2", "")
	t.Setenv("SQUEUE_SORT", "")
	t.Setenv("SQUEUE_ALL", "")
	t.Setenv("SQUEUE_STATES", "")
	t.Setenv("SQUEUE_PARTITION", "")
	t.Setenv("SQUEUE_USERS", "")
	t.Setenv("SLURMTAB_SOURCE", "")
	if err := ParseIni(strings.NewReader(
		"[data-source]\nuri=/var/lib/sonar\ncluster=fox\n\n[squeue]\nformat=%i\nsort=i\n")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { LoadIniFile("") })

	s := SharedArgs{Tool: "squeue"}
	if err := s.Resolve(SqueueFormat, SqueueSort); err != nil {
		t.Fatal(err)
	}
	if s.Format != "%i" || s.Sort != "i" || s.Source != "/var/lib/sonar" || s.Cluster != "fox" || s.All {
		t.Fatalf("Ini layer %+v", s)
	}

	t.Setenv("SQUEUE_FORMAT2", "jobid")
	t.Setenv("SQUEUE_SORT", "-p")
	t.Setenv("SQUEUE_ALL", "1")
	t.Setenv("SQUEUE_STATES", "PD,R")
	t.Setenv("SLURMTAB_SOURCE", "http://ctl:6820")
	s = SharedArgs{Tool: "squeue"}
	s.Resolve(SqueueFormat, SqueueSort)
	if s.Format != "" || s.FormatLong != "jobid" || s.Sort != "-p" || !s.All || s.States.String() != "PD,R" ||
		s.Source != "http://ctl:6820" {
		t.Fatalf("Env layer %+v", s)
	}

	t.Setenv("SQUEUE_FORMAT", "%j")
	s = SharedArgs{Tool: "squeue", Sort: "P", Hide: true}
	s.States.Set("CG")
	s.Resolve(SqueueFormat, SqueueSort)
	if s.Format != "%j" || s.FormatLong != "" || s.Sort != "P" || s.All || s.States.String() != "CG" {
		t.Fatalf("CLI layer %+v", s)
	}

	s = SharedArgs{Tool: "squeue", Format: "%i", FormatLong: "jobid"}
	if err := s.Resolve(SqueueFormat, SqueueSort); AsToolError(err).Kind != Incompatible {
		t.Fatalf("Error %v", err)
	}
}

func TestClassifySource(t *testing.T) {
	for _, test := range []struct {
		uri  string
		kind SourceKind
		addr string
	}{
		{"", SourceNone, ""},
		{"https://ctl:6820", SourceSlurmrest, "https://ctl:6820"},
		{"postgresql://u@db/slurm", SourceDatabase, "postgresql://u@db/slurm"},
		{"kafka://broker:9092", SourceKafka, "broker:9092"},
		{"file:///data/fox", SourceFiles, "/data/fox"},
		{"/data/fox", SourceFiles, "/data/fox"},
	} {
		kind, addr, err := ClassifySource(test.uri)
		if err != nil || kind != test.kind || addr != test.addr {
			t.Fatalf("%s: %v %s %v", test.uri, kind, addr, err)
		}
	}
	for _, uri := range []string{"kafka://", "file://", "ftp://x"} {
		if _, _, err := ClassifySource(uri); AsToolError(err).Kind != InvalidArgument {
			t.Fatalf("%s: %v", uri, err)
		}
	}
	if _, err := OpenSource(context.Background(), "", ""); AsToolError(err).Kind != InvalidArgument {
		t.Fatalf("No source: %v", err)
	}
	if _, err := OpenSource(context.Background(), "/nonexistent/dir", ""); ExitCode(err) != 2 {
		t.Fatalf("Missing dir: %v", err)
	}
}

func TestInfo(t *testing.T) {
	in := NewInfo()
	in.Set("b", 1)
	in.Set("a", true)
	in.Set("b", "two")
	var out strings.Builder
	in.Write(&out)
	want := banner + "\nb = two\na = true\n" + banner + "\n"
	if out.String() != want || in.Len() != 2 {
		t.Fatalf("Info %q", out.String())
	}
	if v, ok := in.Get("a"); !ok || v != "true" {
		t.Fatalf("Get %q", v)
	}
}

func TestUsage(t *testing.T) {
	c := NewCLI("tool")
	c.Group("data-source")
	var s string
	c.StringVar(&s, "source", "", "URI", "Where the data come from, a long description that must be wrapped")
	c.Group("application-control")
	var b bool
	c.BoolVar(&b, "version", "V", "Print the version")
	var out strings.Builder
	c.PrintUsage(&out, []string{"Summary."}, 40)
	text := out.String()
	if !strings.HasPrefix(text, "Usage: tool [OPTIONS]\n\n  Summary.\n") {
		t.Fatalf("Usage %q", text)
	}
	if strings.Index(text, "Application control") > strings.Index(text, "Data source") {
		t.Fatalf("Group order %q", text)
	}
	if !strings.Contains(text, "  -V, --version\n") || !strings.Contains(text, "      --source=URI\n") {
		t.Fatalf("Options %q", text)
	}
	for _, l := range wrap("a b c d e f g h i j k l m n o p q r s t u v w x y z", 20) {
		if len(l) > 20 {
			t.Fatalf("Line %q", l)
		}
	}
}

func TestLoop(t *testing.T) {
	var out strings.Builder
	n := 0
	l := Loop{Interval: time.Second, Limit: 3, Sleep: func(context.Context, time.Duration) error { return nil }}
	err := l.Run(context.Background(), &out, func() error {
		n++
		io.WriteString(&out, "x\n")
		return nil
	})
	if err != nil || n != 3 || out.String() != "x\n\nx\n\nx\n" {
		t.Fatalf("Loop %d %q %v", n, out.String(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep %v", err)
	}
	n = 0
	err = Loop{Interval: time.Hour}.Run(ctx, &out, func() error {
		n++
		return nil
	})
	if err != nil || n != 1 {
		t.Fatalf("Cancelled loop %d %v", n, err)
	}
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	type snap struct{ at time.Time }
	last := func(s *snap) time.Time { return s.at }
	first := &snap{time.Unix(100, 0)}
	var since time.Time
	got, err := Reload(ctx, first, func(s time.Time) (*snap, error) {
		since = s
		return nil, source.ErrNoChange
	}, last)
	if err != nil || got != first || !since.Equal(first.at) {
		t.Fatalf("No change %v %v", got, err)
	}
	if _, err := Reload(ctx, nil, func(time.Time) (*snap, error) { return nil, source.ErrNoChange }, last); err == nil {
		t.Fatal("No previous snapshot")
	}
	_, err = Reload(ctx, first, func(time.Time) (*snap, error) { return nil, errors.New("down") }, last)
	if ExitCode(err) != 2 {
		t.Fatalf("Failure %v", err)
	}
}

type fakeCommand struct {
	SharedArgs
	rest []string
	ran  bool
	err  error
}

func (f *fakeCommand) Shared() *SharedArgs { return &f.SharedArgs }
func (f *fakeCommand) Summary() []string { return []string{"Fake."} }
func (f *fakeCommand) Add(c *CLI) { f.SharedArgs.Add(c) }
func (f *fakeCommand) Preprocess(args []string) []string { return args }
func (f *fakeCommand) SetRestArguments(args []string) error {
	f.rest = args
	return nil
}

func (f *fakeCommand) Validate() error { return f.SharedArgs.Validate() }
func (f *fakeCommand) FormatHelp(out io.Writer) { io.WriteString(out, "fields\n") }
func (f *fakeCommand) Dump(info *Info) { f.SharedArgs.Dump(info) }
func (f *fakeCommand) Run(context.Context, source.Loader, io.Writer) error {
	f.ran = true
	return f.err
}

func TestDriver(t *testing.T) {
	t.Setenv("SLURMTAB_CONF", "/nonexistent/slurmtab")
	var out, errs strings.Builder
	var uri string
	d := &Driver{
		Stdout: &out,
		Stderr: &errs,
		Open:   func(_ context.Context, u, _ string) (source.Loader, error) {
			uri = u
			return &source.Static{}, nil
		},
		Width: 60,
	}

	f := &fakeCommand{SharedArgs: SharedArgs{Tool: "fake"}}
	if code := d.Main(f, []string{"--source=/data", "a", "b"}); code != 0 || !f.ran || uri != "/data" {
		t.Fatalf("Exit %d ran %v uri %q", code, f.ran, uri)
	}
	if !slices.Equal(f.rest, []string{"a", "b"}) {
		t.Fatalf("Rest %v", f.rest)
	}

	f = &fakeCommand{SharedArgs: SharedArgs{Tool: "fake"}}
	if code := d.Main(f, []string{"--usage"}); code != 0 || f.ran || !strings.Contains(out.String(), "Fake.") {
		t.Fatalf("Exit %d", code)
	}

	f = &fakeCommand{SharedArgs: SharedArgs{Tool: "fake"}, err: NewSnapshotUnavailable(errors.New("gone"))}
	errs.Reset()
	if code := d.Main(f, nil); code != 2 || errs.String() != "fake: gone\n" {
		t.Fatalf("Exit %d: %q", code, errs.String())
	}

	f = &fakeCommand{SharedArgs: SharedArgs{Tool: "fake"}}
	errs.Reset()
	if code := d.Main(f, []string{"--iterate=x"}); code != 1 || !strings.Contains(errs.String(), `Try "fake --help"`) {
		t.Fatalf("Exit %d: %q", code, errs.String())
	}
}
