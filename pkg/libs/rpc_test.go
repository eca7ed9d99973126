package libs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumenlang/lumen/pkg/lumen"
)

const testProto = `syntax = "proto3";

package testsvc;

message Greeting {
  string name = 1;
  int32 count = 2;
}

service Greeter {
  rpc Greet (Greeting) returns (Greeting);
}
`

// newRPCState writes the test proto to a temp dir, loads it, and exposes
// the file name and import path as globals.
func newRPCState(t *testing.T) *lumen.State {
	t.Helper()
	l := newState(t, "base", "rpc")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "testsvc.proto"), []byte(testProto), 0644); err != nil {
		t.Fatal(err)
	}
	l.PushString(dir)
	l.SetField(lumen.GlobalsIndex, "protodir")
	return l
}

func TestRPCLoadProto(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `return rpc.load("testsvc.proto", protodir)`)
	if !l.ToBoolean(1) {
		t.Fatal("loading a valid proto file must succeed")
	}
}

func TestRPCLoadMissingProto(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `
local ok, err = rpc.load("absent.proto", protodir)
return ok, err
`)
	if !l.IsNil(1) {
		t.Error("loading a missing proto file must yield nil")
	}
	if s, _ := l.ToString(2); !strings.Contains(s, "failed to parse proto") {
		t.Errorf("error = %q", s)
	}
}

func TestRPCEncodeDecodeRoundTrip(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `
rpc.load("testsvc.proto", protodir)
local wire = rpc.encode("testsvc.Greeting", {name = "ada", count = 7})
local back = rpc.decode("testsvc.Greeting", wire)
return type(wire), back.name, back.count
`)
	if s, _ := l.ToString(1); s != "string" {
		t.Errorf("wire form type = %q, want string", s)
	}
	if s, _ := l.ToString(2); s != "ada" {
		t.Errorf("round-tripped name = %q", s)
	}
	if n, _ := l.ToInteger(3); n != 7 {
		t.Errorf("round-tripped count = %d", n)
	}
}

func TestRPCEncodeUnknownMessage(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `
local wire, err = rpc.encode("testsvc.Missing", {})
return wire, err
`)
	if !l.IsNil(1) {
		t.Error("encoding an unknown message must yield nil")
	}
	if s, _ := l.ToString(2); !strings.Contains(s, "not found") {
		t.Errorf("error = %q", s)
	}
}

func TestRPCInvokeUnknownService(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `
local conn = rpc.connect("localhost:1")
local res, err = conn.invoke(conn, "testsvc.Nowhere/Greet", {})
conn.close(conn)
return res, err
`)
	if !l.IsNil(1) {
		t.Error("invoking an unloaded service must yield nil")
	}
	if s, _ := l.ToString(2); !strings.Contains(s, "not found") {
		t.Errorf("error = %q", s)
	}
}

func TestRPCInvokeBadMethodPath(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `
local conn = rpc.connect("localhost:1")
local res, err = conn.invoke(conn, "NoSlashHere", {})
conn.close(conn)
return res, err
`)
	if !l.IsNil(1) {
		t.Error("a method path without a slash must be rejected")
	}
	if s, _ := l.ToString(2); !strings.Contains(s, "Service/Method") {
		t.Errorf("error = %q", s)
	}
}

func TestRPCCloseIsIdempotent(t *testing.T) {
	l := newRPCState(t)
	run(t, l, `
local conn = rpc.connect("localhost:1")
local first = conn.close(conn)
local second = conn.close(conn)
return first, second
`)
	if !l.ToBoolean(1) || !l.ToBoolean(2) {
		t.Error("close must report success on both calls")
	}
}
