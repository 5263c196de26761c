// Package manifest defines the declarative description of one installable
// tool and loads it from TOML documents.
package manifest

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

// TargetType is the closed set of destinations a file can be installed to.
type TargetType string

const (
	TypeBin         TargetType = "bin"
	TypeMan         TargetType = "man"
	TypeCompletion  TargetType = "completion"
	TypeHardlink    TargetType = "hardlink"
	TypeSystemdUnit TargetType = "systemd-unit"
)

// Shells supported for completion targets.
const (
	ShellFish = "fish"
	ShellBash = "bash"
	ShellZsh  = "zsh"
)

// Manifest describes one tool: where to download it, how to verify it,
// where its files go, and how to detect an installed version.
type Manifest struct {
	Meta     Meta          `toml:"meta"`
	Discover Discover      `toml:"discover"`
	Install  []InstallStep `toml:"install"`
	Remove   Remove        `toml:"remove,omitempty"`
}

type Meta struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	URL     string `toml:"url"`
	License string `toml:"license,omitempty"`
}

// Discover tells the engine how to detect an installed version of the tool.
type Discover struct {
	Binary       string       `toml:"binary"`
	VersionCheck VersionCheck `toml:"version_check"`
}

// VersionCheck invokes the installed binary with Args and extracts the
// version through the single capture group of Pattern.
type VersionCheck struct {
	Args    []string `toml:"args"`
	Pattern string   `toml:"pattern"`
}

// Regexp compiles the version check pattern.
func (vc VersionCheck) Regexp() (*regexp.Regexp, error) {
	return regexp.Compile(vc.Pattern)
}

// InstallStep is one download + verification + placement unit. Either the
// whole artifact is the installed file (Name/Type set, Files empty), or
// Files addresses entries inside the downloaded archive.
type InstallStep struct {
	Download  string            `toml:"download"`
	Checksums map[string]string `toml:"checksums"`

	// Single-file mode.
	Name string     `toml:"name,omitempty"`
	Type TargetType `toml:"type,omitempty"`

	// Archive mode.
	Files []InstallFile `toml:"files,omitempty"`
}

// Filename is the basename of the download URL, used as the artifact name
// in the download cache and as the default install name.
func (s InstallStep) Filename() string {
	if u, err := url.Parse(s.Download); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(s.Download)
}

// SingleFile reports whether the downloaded artifact itself is the file to
// install, as opposed to an archive with addressed entries.
func (s InstallStep) SingleFile() bool {
	return len(s.Files) == 0
}

// TargetFiles normalizes both modes into a list of file entries. In
// single-file mode the entry's Source is empty, meaning "the artifact".
func (s InstallStep) TargetFiles() []InstallFile {
	if s.SingleFile() {
		name := s.Name
		if name == "" {
			name = s.Filename()
		}
		return []InstallFile{{Name: name, Type: s.Type}}
	}
	return s.Files
}

// InstallFile is one file entry of an install step.
type InstallFile struct {
	Source  string     `toml:"source,omitempty"`
	Name    string     `toml:"name,omitempty"`
	Type    TargetType `toml:"type"`
	Section int        `toml:"section,omitempty"`
	Shell   string     `toml:"shell,omitempty"`
}

// TargetName is the installed filename: Name when set, else the basename
// of Source.
func (f InstallFile) TargetName() string {
	if f.Name != "" {
		return f.Name
	}
	return path.Base(f.Source)
}

// Remove lists files beyond the declared install targets that removal
// should clean up, typically leftovers from earlier manifest versions.
type Remove struct {
	AdditionalFiles []InstallFile `toml:"additional_files,omitempty"`
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("MAN_PARSE: %w", err)
	}
	if err := Validate(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	m, err := Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("file %s is no valid manifest: %w", path, err)
	}
	return m, nil
}
