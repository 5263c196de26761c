// Package home maps install targets onto the user's home directory layout.
// The base directories come from configuration; nothing here requires
// elevated privileges.
package home

import (
	"fmt"
	"os"
	"path/filepath"

	"binhome/internal/manifest"
)

// Dirs holds the destination directories for every target type.
type Dirs struct {
	Bin            string
	ManBase        string
	FishCompletion string
	BashCompletion string
	ZshCompletion  string
	SystemdUser    string
}

// DefaultDirs derives the conventional user layout from $HOME, honoring
// XDG overrides where they apply.
func DefaultDirs() (Dirs, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("FS_HOME: %w", err)
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(homeDir, ".config")
	}
	return Dirs{
		Bin:            filepath.Join(homeDir, ".local", "bin"),
		ManBase:        filepath.Join(dataHome, "man"),
		FishCompletion: filepath.Join(configHome, "fish", "completions"),
		BashCompletion: filepath.Join(dataHome, "bash-completion", "completions"),
		ZshCompletion:  filepath.Join(dataHome, "zsh", "site-functions"),
		SystemdUser:    filepath.Join(configHome, "systemd", "user"),
	}, nil
}

// ManSection is the directory for man pages of the given section.
func (d Dirs) ManSection(section int) string {
	return filepath.Join(d.ManBase, fmt.Sprintf("man%d", section))
}

// CompletionDir maps a shell name onto its completion directory.
func (d Dirs) CompletionDir(shell string) (string, error) {
	switch shell {
	case manifest.ShellFish:
		return d.FishCompletion, nil
	case manifest.ShellBash:
		return d.BashCompletion, nil
	case manifest.ShellZsh:
		return d.ZshCompletion, nil
	default:
		return "", fmt.Errorf("MAN_SHELL: unsupported shell %q", shell)
	}
}

// TargetPath resolves the destination of one file entry. Hardlinks land in
// the binary directory next to their primary.
func (d Dirs) TargetPath(f manifest.InstallFile) (string, error) {
	name := f.TargetName()
	if name == "" {
		return "", fmt.Errorf("MAN_NAME: file entry has neither name nor source")
	}
	switch f.Type {
	case manifest.TypeBin, manifest.TypeHardlink:
		return filepath.Join(d.Bin, name), nil
	case manifest.TypeMan:
		return filepath.Join(d.ManSection(f.Section), name), nil
	case manifest.TypeCompletion:
		dir, err := d.CompletionDir(f.Shell)
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, name), nil
	case manifest.TypeSystemdUnit:
		return filepath.Join(d.SystemdUser, name), nil
	default:
		return "", fmt.Errorf("MAN_TYPE: unsupported target type %q", f.Type)
	}
}

// Mode returns the permission bits a target type is installed with.
func Mode(t manifest.TargetType) os.FileMode {
	if t == manifest.TypeBin || t == manifest.TypeHardlink {
		return 0o755
	}
	return 0o644
}
