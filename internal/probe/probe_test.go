package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"binhome/internal/manifest"
)

type fakeRunner struct {
	output []byte
	err    error
	calls  int
}

func (r *fakeRunner) CombinedOutput(_ context.Context, _ string, _ []string) ([]byte, error) {
	r.calls++
	return r.output, r.err
}

var jqDiscover = manifest.Discover{
	Binary: "jq",
	VersionCheck: manifest.VersionCheck{
		Args:    []string{"--version"},
		Pattern: `jq-(\d\S+)`,
	},
}

func binDirWith(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestProbeInstalled(t *testing.T) {
	dir := binDirWith(t, "jq")
	runner := &fakeRunner{output: []byte("jq-1.6 (Linux x86_64)\n")}

	res := Probe(context.Background(), runner, dir, jqDiscover)
	if !res.Installed || res.Version != "1.6" {
		t.Fatalf("result = %+v, want Installed 1.6", res)
	}
}

func TestProbeBinaryAbsent(t *testing.T) {
	dir := binDirWith(t)
	runner := &fakeRunner{output: []byte("jq-1.6")}

	res := Probe(context.Background(), runner, dir, jqDiscover)
	if res.Installed {
		t.Fatalf("result = %+v, want NotInstalled", res)
	}
	if runner.calls != 0 {
		t.Errorf("runner invoked %d times for absent binary, want 0", runner.calls)
	}
}

func TestProbePatternMismatchIsNotInstalled(t *testing.T) {
	// A different build variant answering the version check is "not this
	// manifest's binary", never an error.
	dir := binDirWith(t, "jq")
	runner := &fakeRunner{output: []byte("gojq 0.12.16\n")}

	res := Probe(context.Background(), runner, dir, jqDiscover)
	if res.Installed {
		t.Fatalf("result = %+v, want NotInstalled", res)
	}
}

func TestProbeRunFailureTolerated(t *testing.T) {
	dir := binDirWith(t, "jq")
	runner := &fakeRunner{err: errors.New("exec format error")}

	res := Probe(context.Background(), runner, dir, jqDiscover)
	if res.Installed {
		t.Fatalf("result = %+v, want NotInstalled", res)
	}
}

func TestProbeNonzeroExitWithParseableOutput(t *testing.T) {
	// Some tools exit nonzero on --version but still print it.
	dir := binDirWith(t, "jq")
	runner := &fakeRunner{output: []byte("jq-1.5\n"), err: errors.New("exit status 2")}

	res := Probe(context.Background(), runner, dir, jqDiscover)
	if !res.Installed || res.Version != "1.5" {
		t.Fatalf("result = %+v, want Installed 1.5", res)
	}
}

func TestProbeDeterministic(t *testing.T) {
	dir := binDirWith(t, "jq")
	runner := &fakeRunner{output: []byte("jq-1.6\n")}

	first := Probe(context.Background(), runner, dir, jqDiscover)
	second := Probe(context.Background(), runner, dir, jqDiscover)
	if first != second {
		t.Fatalf("probe not deterministic: %+v vs %+v", first, second)
	}
}
