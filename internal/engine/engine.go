// Package engine orchestrates manifest resolution: probing installed
// versions, downloading and verifying artifacts, placing files, and
// removing them again. It keeps no installed-state database; the home
// directory itself is the state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"binhome/internal/archive"
	"binhome/internal/audit"
	"binhome/internal/checksum"
	"binhome/internal/fetch"
	"binhome/internal/fsutil"
	"binhome/internal/home"
	"binhome/internal/manifest"
	"binhome/internal/probe"
	"binhome/internal/version"
)

// State of one tool relative to its manifest.
type State string

const (
	StateNotInstalled State = "not installed"
	StateOutdated     State = "outdated"
	StateUpToDate     State = "up to date"
)

// Status pairs the probed state with the versions behind it.
type Status struct {
	State            State
	InstalledVersion string
	ManifestVersion  string
}

// Engine wires the download, verification, extraction, and placement
// collaborators together. All fields must be set; Audit may be nil.
type Engine struct {
	Dirs     home.Dirs
	CacheDir string
	Download fetch.Downloader
	Runner   probe.Runner
	Audit    *audit.Logger
}

// Status probes the installed binary and compares it against the manifest
// version. Probing never errors; an unreadable or unmatchable binary is
// simply not installed.
func (e *Engine) Status(ctx context.Context, m manifest.Manifest) Status {
	res := probe.Probe(ctx, e.Runner, e.Dirs.Bin, m.Discover)
	st := Status{ManifestVersion: m.Meta.Version}
	if !res.Installed {
		st.State = StateNotInstalled
		return st
	}
	st.InstalledVersion = res.Version
	if version.Compare(res.Version, m.Meta.Version) < 0 {
		st.State = StateOutdated
	} else {
		st.State = StateUpToDate
	}
	return st
}

// Install downloads, verifies, and places every install step of the
// manifest. Already-installed files are overwritten in place; a running
// binary keeps executing its old inode. Installation is per-file atomic,
// not per-manifest: a failure mid-manifest leaves earlier files placed.
func (e *Engine) Install(ctx context.Context, m manifest.Manifest) error {
	for i, step := range m.Install {
		if err := e.installStep(ctx, m, step); err != nil {
			e.Audit.Fail("install", m.Meta.Name, m.Meta.Version, "step", err)
			return fmt.Errorf("ENG_INSTALL: %s step %d: %w", m.Meta.Name, i, err)
		}
	}
	e.Audit.Ok("install", m.Meta.Name, m.Meta.Version, "done", "")
	return nil
}

// Update installs the manifest unless the probed version is already up to
// date. The returned status is the state before any action.
func (e *Engine) Update(ctx context.Context, m manifest.Manifest) (Status, error) {
	st := e.Status(ctx, m)
	if st.State == StateUpToDate {
		return st, nil
	}
	return st, e.Install(ctx, m)
}

func (e *Engine) installStep(ctx context.Context, m manifest.Manifest, step manifest.InstallStep) error {
	artifact, err := e.artifact(ctx, m, step)
	if err != nil {
		return err
	}
	kind := archive.DetectKind(step.Filename())

	// Hardlinks come last: their source is a file placed by this step.
	files := step.TargetFiles()
	for _, f := range files {
		if f.Type == manifest.TypeHardlink {
			continue
		}
		if err := e.placeFile(m, artifact, kind, f); err != nil {
			return err
		}
	}
	for _, f := range files {
		if f.Type != manifest.TypeHardlink {
			continue
		}
		if err := e.placeHardlink(m, f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) placeFile(m manifest.Manifest, artifact string, kind archive.Kind, f manifest.InstallFile) error {
	dest, err := e.Dirs.TargetPath(f)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(filepath.Dir(dest)); err != nil {
		return fmt.Errorf("FS_MKDIR: %w", err)
	}
	rc, err := archive.Extract(artifact, kind, f.Source)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := fsutil.Install(rc, dest, home.Mode(f.Type)); err != nil {
		return err
	}
	e.Audit.Ok("install", m.Meta.Name, m.Meta.Version, "place", dest)
	return nil
}

func (e *Engine) placeHardlink(m manifest.Manifest, f manifest.InstallFile) error {
	dest, err := e.Dirs.TargetPath(f)
	if err != nil {
		return err
	}
	src := filepath.Join(e.Dirs.Bin, f.Source)
	if err := fsutil.Hardlink(src, dest); err != nil {
		return err
	}
	e.Audit.Ok("install", m.Meta.Name, m.Meta.Version, "link", dest)
	return nil
}

// artifact returns the path of a verified download in the cache. A cached
// artifact is re-verified on every use; if it no longer matches it is
// discarded and fetched once more. A fresh download that fails
// verification is fatal and leaves nothing behind.
func (e *Engine) artifact(ctx context.Context, m manifest.Manifest, step manifest.InstallStep) (string, error) {
	dir := filepath.Join(e.CacheDir, "downloads", m.Meta.Name, m.Meta.Version)
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("FS_MKDIR: %w", err)
	}
	path := filepath.Join(dir, step.Filename())

	if _, err := os.Stat(path); err == nil {
		err := verifyFile(path, step.Checksums)
		if err == nil {
			return path, nil
		}
		var mismatch *checksum.MismatchError
		if !errors.As(err, &mismatch) {
			return "", err
		}
		// Stale or corrupted cache entry. Drop it and fetch again.
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("FS_UNLINK: %w", err)
		}
	}

	if err := e.download(ctx, step.Download, path); err != nil {
		return "", err
	}
	if err := verifyFile(path, step.Checksums); err != nil {
		_ = os.Remove(path)
		e.Audit.Fail("install", m.Meta.Name, m.Meta.Version, "verify", err)
		return "", err
	}
	e.Audit.Ok("install", m.Meta.Name, m.Meta.Version, "verify", step.Filename())
	return path, nil
}

func (e *Engine) download(ctx context.Context, url, dest string) error {
	body, err := e.Download.Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	return fsutil.Install(body, dest, 0o644)
}

func verifyFile(path string, sums map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("CHK_READ: %w", err)
	}
	defer f.Close()
	return checksum.Verify(f, sums)
}

// RemovalSet is every path removal would delete: all declared install
// targets, their hardlinks, and the manifest's additional files. The set
// is computed without touching the filesystem, deduplicated, and sorted.
func (e *Engine) RemovalSet(m manifest.Manifest) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	add := func(f manifest.InstallFile) error {
		p, err := e.Dirs.TargetPath(f)
		if err != nil {
			return err
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
		return nil
	}
	for _, step := range m.Install {
		for _, f := range step.TargetFiles() {
			if err := add(f); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range m.Remove.AdditionalFiles {
		if err := add(f); err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Remove deletes every path in the removal set. Already-absent paths are
// fine, which makes removal idempotent. Other failures are collected so
// one stubborn file does not keep the rest installed.
func (e *Engine) Remove(m manifest.Manifest) error {
	paths, err := e.RemovalSet(m)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("FS_UNLINK: %s: %w", p, err))
			continue
		}
		e.Audit.Ok("remove", m.Meta.Name, m.Meta.Version, "remove", p)
	}
	if err := errors.Join(errs...); err != nil {
		e.Audit.Fail("remove", m.Meta.Name, m.Meta.Version, "remove", err)
		return fmt.Errorf("ENG_REMOVE: %s: %w", m.Meta.Name, err)
	}
	return nil
}
