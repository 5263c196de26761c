package manifest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type gitExecFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

func defaultGitExec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, string(out))
	}
	return out, nil
}

// Repo is a git repository of manifests cloned under root. Its working
// tree is disposable cache: Sync always resets hard to the remote.
type Repo struct {
	Name    string
	URL     string
	Branch  string
	root    string
	execGit gitExecFunc
}

func NewRepo(root, name, url, branch string) *Repo {
	return &Repo{Name: name, URL: url, Branch: branch, root: root, execGit: defaultGitExec}
}

func (r *Repo) Dir() string { return filepath.Join(r.root, r.Name) }

// Store returns the manifest store backed by this repository's checkout.
// Repositories keep their manifests in a manifests/ subdirectory when one
// exists, otherwise at the top level.
func (r *Repo) Store() *Store {
	sub := filepath.Join(r.Dir(), "manifests")
	if info, err := os.Stat(sub); err == nil && info.IsDir() {
		return OpenStore(sub)
	}
	return OpenStore(r.Dir())
}

// Sync clones the repository on first use and fast-forwards it afterwards.
// Local edits in the checkout are discarded.
func (r *Repo) Sync(ctx context.Context) error {
	if r.URL == "" {
		return fmt.Errorf("MAN_REPO: repository %q missing url", r.Name)
	}
	branch := r.Branch
	if branch == "" {
		branch = "main"
	}
	dir := r.Dir()
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("MAN_REPO: %w", err)
	}
	if isGitRepo(dir) {
		if _, err := r.execGit(ctx, dir, "fetch", "origin", branch, "--depth", "1"); err != nil {
			return fmt.Errorf("MAN_REPO: fetch failed: %w", err)
		}
		if _, err := r.execGit(ctx, dir, "reset", "--hard", "origin/"+branch); err != nil {
			return fmt.Errorf("MAN_REPO: reset failed: %w", err)
		}
		return nil
	}
	if _, err := r.execGit(ctx, "", "clone", "--depth", "1", "--single-branch", "--branch", branch, r.URL, dir); err != nil {
		return fmt.Errorf("MAN_REPO: clone failed: %w", err)
	}
	return nil
}

func isGitRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
