// Package probe detects installed tool versions by running the installed
// binary and matching its output. Probing is stateless: there is no
// installed-state database, so every invocation re-derives the answer from
// the filesystem and the binary itself.
package probe

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"binhome/internal/manifest"
)

// Runner is the process invocation capability. Tests substitute a fake so
// probing never spawns real processes.
type Runner interface {
	// CombinedOutput runs bin with args and returns interleaved
	// stdout/stderr. Output may be non-empty even when err is non-nil.
	CombinedOutput(ctx context.Context, bin string, args []string) ([]byte, error)
}

// ExecRunner runs binaries through os/exec.
type ExecRunner struct{}

func (ExecRunner) CombinedOutput(ctx context.Context, bin string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).CombinedOutput()
}

// Result of probing one manifest's binary.
type Result struct {
	Installed bool
	Version   string
}

// Probe checks whether the manifest's binary is installed under binDir and
// which version it reports. An absent binary returns NotInstalled without
// invoking anything. Invocation failures and pattern non-matches also
// report NotInstalled: variant builds of the same tool may answer the
// version check differently, and a probe must never abort a batch run.
func Probe(ctx context.Context, runner Runner, binDir string, d manifest.Discover) Result {
	bin := filepath.Join(binDir, d.Binary)
	if !isRegularFile(bin) {
		return Result{}
	}
	output, err := runner.CombinedOutput(ctx, bin, d.VersionCheck.Args)
	if len(output) == 0 && err != nil {
		return Result{}
	}
	re, err := d.VersionCheck.Regexp()
	if err != nil {
		// Validation rejects bad patterns at load time.
		return Result{}
	}
	match := re.FindSubmatch(output)
	if match == nil || len(match) < 2 {
		return Result{}
	}
	return Result{Installed: true, Version: string(match[1])}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
