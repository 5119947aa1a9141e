package common

import (
	"errors"
	"fmt"
	"os/user"
	"strings"
	"testing"
)

func TestExitCodes(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatal("nil")
	}
	if ExitCode(NewInvalidArgument("bad %s", "x")) != 1 {
		t.Fatal("InvalidArgument")
	}
	if ExitCode(NewIncompatible("both")) != 1 {
		t.Fatal("Incompatible")
	}
	wrapped := fmt.Errorf("loading: %w", NewSnapshotUnavailable(errors.New("down")))
	if ExitCode(wrapped) != 2 {
		t.Fatal("SnapshotUnavailable")
	}
	if ExitCode(errors.New("plain")) != 1 {
		t.Fatal("plain")
	}
	joined := errors.Join(NewInvalidArgument("a"), NewInvalidArgument("b"))
	te := AsToolError(joined)
	if te.Kind != InvalidArgument || !te.IsUsage() {
		t.Fatalf("Joined: %v", te.Kind)
	}
	if AsToolError(NewSnapshotUnavailable(errors.New("x"))).IsUsage() {
		t.Fatal("Usage")
	}
}

func TestIdentity(t *testing.T) {
	calls := 0
	lookupUid = func(uid string) (*user.User, error) {
		calls++
		if uid == "4711" {
			return &user.User{Uid: uid, Username: "alice"}, nil
		}
		return nil, user.UnknownUserIdError(0)
	}
	lookupLogin = func(name string) (*user.User, error) {
		if name == "bob" {
			return &user.User{Uid: "4712", Username: "bob"}, nil
		}
		return nil, user.UnknownUserError(name)
	}
	lookupGid = func(gid string) (*user.Group, error) {
		if gid == "100" {
			return &user.Group{Gid: gid, Name: "users"}, nil
		}
		return nil, user.UnknownGroupIdError(gid)
	}

	if UidToName(4711) != "alice" || UidToName(4711) != "alice" {
		t.Fatal("UidToName")
	}
	if calls != 1 {
		t.Fatalf("Cache miss, %d lookups", calls)
	}
	if UidToName(99999) != "99999" {
		t.Fatal("Unknown uid")
	}
	if GidToName(100) != "users" || GidToName(101) != "101" {
		t.Fatal("GidToName")
	}
	if n, err := NameToUid("bob"); err != nil || n != 4712 {
		t.Fatalf("NameToUid %d %v", n, err)
	}
	if n, err := NameToUid("123"); err != nil || n != 123 {
		t.Fatalf("Numeric %d %v", n, err)
	}
	_, err := NameToUid("nosuchuser")
	if err == nil || AsToolError(err).Kind != UnknownIdentity {
		t.Fatalf("Unknown user %v", err)
	}
}

func TestRewriteLocalhost(t *testing.T) {
	osHostname = func() (string, error) { return "login3.cluster.example", nil }
	s, err := RewriteLocalhost("c1,localhost,c[2-3]")
	if err != nil || s != "c1,login3,c[2-3]" {
		t.Fatalf("Rewrite %q %v", s, err)
	}
	s, _ = RewriteLocalhost("c1")
	if s != "c1" {
		t.Fatal("No rewrite")
	}
}

func TestIni(t *testing.T) {
	err := ParseIni(strings.NewReader("[data-source]\nuri=file:///var/lib/slurmtab\n\n[squeue]\nformat=%i %j\n"))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := IniValue(DataSourceURI); !ok || v != "file:///var/lib/slurmtab" {
		t.Fatalf("uri %q", v)
	}
	if HasDefault(SinfoSort) {
		t.Fatal("sinfo sort")
	}
	s := ""
	if !ApplyDefault(&s, SqueueFormat) || s != "%i %j" {
		t.Fatalf("format %q", s)
	}
	s = "x"
	if ApplyDefault(&s, SqueueFormat) {
		t.Fatal("Overwrote a value")
	}
	LoadIniFile("")
	if HasDefault(DataSourceURI) {
		t.Fatal("Store not reset")
	}
}
