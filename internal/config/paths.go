package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"binhome/internal/home"
)

func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/binhome/config.toml"
	}
	return filepath.Join(homeDir, ".config", "binhome", "config.toml")
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return homeDir, nil
	}
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}

func ResolveCacheRoot(cfg Config) (string, error) {
	expanded, err := ExpandPath(cfg.Cache.Root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

func ResolveManifestDir(cfg Config) (string, error) {
	expanded, err := ExpandPath(cfg.Manifests.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

// ResolveAuditPath expands the audit log path; empty stays empty, which
// disables the log.
func ResolveAuditPath(cfg Config) (string, error) {
	if cfg.Logging.Audit == "" {
		return "", nil
	}
	return ExpandPath(cfg.Logging.Audit)
}

// ResolveDirs builds the destination layout: the conventional home layout
// with any configured overrides applied on top.
func ResolveDirs(cfg Config) (home.Dirs, error) {
	dirs, err := home.DefaultDirs()
	if err != nil {
		return home.Dirs{}, err
	}
	overrides := []struct {
		value  string
		target *string
	}{
		{cfg.Dirs.Bin, &dirs.Bin},
		{cfg.Dirs.Man, &dirs.ManBase},
		{cfg.Dirs.FishCompletion, &dirs.FishCompletion},
		{cfg.Dirs.BashCompletion, &dirs.BashCompletion},
		{cfg.Dirs.ZshCompletion, &dirs.ZshCompletion},
		{cfg.Dirs.SystemdUser, &dirs.SystemdUser},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		expanded, err := ExpandPath(o.value)
		if err != nil {
			return home.Dirs{}, err
		}
		*o.target = filepath.Clean(expanded)
	}
	return dirs, nil
}
