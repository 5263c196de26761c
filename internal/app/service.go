// Package app wires configuration, manifest stores, and the engine into
// the operations the CLI exposes. Batch operations isolate failures per
// manifest so one broken tool never blocks the rest.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"

	"binhome/internal/audit"
	"binhome/internal/config"
	"binhome/internal/doctor"
	"binhome/internal/engine"
	"binhome/internal/fetch"
	"binhome/internal/home"
	"binhome/internal/manifest"
	"binhome/internal/probe"
)

type Options struct {
	ConfigPath string
	// ManifestDir overrides the configured local manifest directory.
	ManifestDir string
	HTTPClient  *http.Client
	Runner      probe.Runner
}

type Service struct {
	ConfigPath string
	Config     config.Config
	Dirs       home.Dirs
	CacheDir   string

	Engine *engine.Engine
	Doctor *doctor.Service
	Audit  *audit.Logger

	local *manifest.Store
	repos []*manifest.Repo
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}

	dirs, err := config.ResolveDirs(cfg)
	if err != nil {
		return nil, err
	}
	cacheDir, err := config.ResolveCacheRoot(cfg)
	if err != nil {
		return nil, err
	}
	manifestDir := opts.ManifestDir
	if manifestDir == "" {
		manifestDir, err = config.ResolveManifestDir(cfg)
		if err != nil {
			return nil, err
		}
	}
	auditPath, err := config.ResolveAuditPath(cfg)
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = probe.ExecRunner{}
	}
	logger := audit.New(auditPath)
	eng := &engine.Engine{
		Dirs:     dirs,
		CacheDir: cacheDir,
		Download: fetch.NewHTTP(opts.HTTPClient),
		Runner:   runner,
		Audit:    logger,
	}

	repos := make([]*manifest.Repo, 0, len(cfg.Repos))
	repoRoot := filepath.Join(cacheDir, "repos")
	for _, r := range cfg.Repos {
		repos = append(repos, manifest.NewRepo(repoRoot, r.Name, r.URL, r.Branch))
	}

	return &Service{
		ConfigPath: configPath,
		Config:     cfg,
		Dirs:       dirs,
		CacheDir:   cacheDir,
		Engine:     eng,
		Doctor:     &doctor.Service{ConfigPath: configPath, Dirs: dirs},
		Audit:      logger,
		local:      manifest.OpenStore(manifestDir),
		repos:      repos,
	}, nil
}

// stores returns the manifest stores in lookup order: the local directory
// first, then each configured repository.
func (s *Service) stores() []*manifest.Store {
	stores := []*manifest.Store{s.local}
	for _, r := range s.repos {
		stores = append(stores, r.Store())
	}
	return stores
}

// LoadManifest finds the named manifest in the first store that has it.
func (s *Service) LoadManifest(name string) (manifest.Manifest, error) {
	for _, store := range s.stores() {
		m, err := store.Load(name)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, manifest.ErrNotFound) {
			return manifest.Manifest{}, err
		}
	}
	return manifest.Manifest{}, fmt.Errorf("%w: %q", manifest.ErrNotFound, name)
}

// ListManifests merges all stores. When a name appears in several stores
// the earliest store wins, so local manifests shadow repository ones.
func (s *Service) ListManifests() ([]manifest.Manifest, error) {
	seen := map[string]struct{}{}
	var merged []manifest.Manifest
	for _, store := range s.stores() {
		manifests, err := store.List()
		if err != nil {
			return nil, err
		}
		for _, m := range manifests {
			if _, ok := seen[m.Meta.Name]; ok {
				continue
			}
			seen[m.Meta.Name] = struct{}{}
			merged = append(merged, m)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Meta.Name < merged[j].Meta.Name })
	return merged, nil
}

// ToolStatus is one row of the installed/outdated listings.
type ToolStatus struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	InstalledVersion string `json:"installedVersion,omitempty"`
	ManifestVersion  string `json:"manifestVersion"`
}

func (s *Service) status(ctx context.Context, m manifest.Manifest) ToolStatus {
	st := s.Engine.Status(ctx, m)
	return ToolStatus{
		Name:             m.Meta.Name,
		State:            string(st.State),
		InstalledVersion: st.InstalledVersion,
		ManifestVersion:  st.ManifestVersion,
	}
}

// Installed probes every known manifest and returns those with an
// installed binary.
func (s *Service) Installed(ctx context.Context) ([]ToolStatus, error) {
	manifests, err := s.ListManifests()
	if err != nil {
		return nil, err
	}
	var installed []ToolStatus
	for _, m := range manifests {
		st := s.status(ctx, m)
		if st.State != string(engine.StateNotInstalled) {
			installed = append(installed, st)
		}
	}
	return installed, nil
}

// Outdated returns installed tools whose probed version is older than the
// manifest version.
func (s *Service) Outdated(ctx context.Context) ([]ToolStatus, error) {
	manifests, err := s.ListManifests()
	if err != nil {
		return nil, err
	}
	var outdated []ToolStatus
	for _, m := range manifests {
		st := s.status(ctx, m)
		if st.State == string(engine.StateOutdated) {
			outdated = append(outdated, st)
		}
	}
	return outdated, nil
}

// Files returns every path installing the named manifest would own.
func (s *Service) Files(name string) ([]string, error) {
	m, err := s.LoadManifest(name)
	if err != nil {
		return nil, err
	}
	return s.Engine.RemovalSet(m)
}

// Outcome is the per-manifest result of a batch operation.
type Outcome struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Err    error  `json:"-"`
	Error  string `json:"error,omitempty"`
}

func outcome(name, action string, err error) Outcome {
	o := Outcome{Name: name, Action: action, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Failed reports whether any outcome carries an error.
func Failed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// Install installs each named manifest. A failure is recorded in its
// outcome and the batch continues.
func (s *Service) Install(ctx context.Context, names []string) []Outcome {
	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		m, err := s.LoadManifest(name)
		if err != nil {
			outcomes = append(outcomes, outcome(name, "failed", err))
			continue
		}
		if err := s.Engine.Install(ctx, m); err != nil {
			outcomes = append(outcomes, outcome(name, "failed", err))
			continue
		}
		outcomes = append(outcomes, outcome(name, "installed", nil))
	}
	return outcomes
}

// Update brings each named manifest up to date; with no names it updates
// every outdated installed tool.
func (s *Service) Update(ctx context.Context, names []string) ([]Outcome, error) {
	if len(names) == 0 {
		outdated, err := s.Outdated(ctx)
		if err != nil {
			return nil, err
		}
		for _, st := range outdated {
			names = append(names, st.Name)
		}
	}
	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		m, err := s.LoadManifest(name)
		if err != nil {
			outcomes = append(outcomes, outcome(name, "failed", err))
			continue
		}
		st, err := s.Engine.Update(ctx, m)
		if err != nil {
			outcomes = append(outcomes, outcome(name, "failed", err))
			continue
		}
		if st.State == engine.StateUpToDate {
			outcomes = append(outcomes, outcome(name, "unchanged", nil))
		} else {
			outcomes = append(outcomes, outcome(name, "updated", nil))
		}
	}
	return outcomes, nil
}

// Remove deletes each named manifest's files. Removal of an absent tool
// succeeds.
func (s *Service) Remove(names []string) []Outcome {
	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		m, err := s.LoadManifest(name)
		if err != nil {
			outcomes = append(outcomes, outcome(name, "failed", err))
			continue
		}
		if err := s.Engine.Remove(m); err != nil {
			outcomes = append(outcomes, outcome(name, "failed", err))
			continue
		}
		outcomes = append(outcomes, outcome(name, "removed", nil))
	}
	return outcomes
}

// SyncRepos clones or updates every configured manifest repository.
func (s *Service) SyncRepos(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, 0, len(s.repos))
	for _, r := range s.repos {
		if err := r.Sync(ctx); err != nil {
			outcomes = append(outcomes, outcome(r.Name, "failed", err))
			continue
		}
		outcomes = append(outcomes, outcome(r.Name, "synced", nil))
	}
	return outcomes
}

// ValidateManifest loads a manifest file purely for its validation result.
func (s *Service) ValidateManifest(path string) (manifest.Manifest, error) {
	return manifest.Load(path)
}

func (s *Service) SaveConfig() error {
	return config.Save(s.ConfigPath, s.Config)
}
