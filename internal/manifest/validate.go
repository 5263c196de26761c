package manifest

import (
	"fmt"

	"binhome/internal/checksum"
)

var allowedTypes = map[TargetType]struct{}{
	TypeBin:         {},
	TypeMan:         {},
	TypeCompletion:  {},
	TypeHardlink:    {},
	TypeSystemdUnit: {},
}

var allowedShells = map[string]struct{}{
	ShellFish: {},
	ShellBash: {},
	ShellZsh:  {},
}

// Validate rejects malformed manifests before any network or filesystem
// action happens.
func Validate(m Manifest) error {
	if m.Meta.Name == "" || m.Meta.Version == "" {
		return fmt.Errorf("MAN_META: name and version are required")
	}
	if m.Discover.Binary == "" {
		return fmt.Errorf("MAN_DISCOVER: %s: discover.binary is required", m.Meta.Name)
	}
	re, err := m.Discover.VersionCheck.Regexp()
	if err != nil {
		return fmt.Errorf("MAN_PATTERN: %s: invalid version check pattern %q: %w", m.Meta.Name, m.Discover.VersionCheck.Pattern, err)
	}
	if re.NumSubexp() != 1 {
		return fmt.Errorf("MAN_PATTERN: %s: version check pattern %q must have exactly one capture group, has %d", m.Meta.Name, m.Discover.VersionCheck.Pattern, re.NumSubexp())
	}
	if len(m.Install) == 0 {
		return fmt.Errorf("MAN_INSTALL: %s: at least one install step is required", m.Meta.Name)
	}
	for i, step := range m.Install {
		if err := validateStep(m.Meta.Name, i, step); err != nil {
			return err
		}
	}
	for _, f := range m.Remove.AdditionalFiles {
		if err := validateFile(m.Meta.Name, f, true); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(name string, i int, step InstallStep) error {
	if step.Download == "" {
		return fmt.Errorf("MAN_DOWNLOAD: %s: install step %d has no download URL", name, i)
	}
	// No checksum means no trust: reject rather than skip verification.
	if len(step.Checksums) == 0 {
		return fmt.Errorf("MAN_CHECKSUMS: %s: install step %d declares no checksums", name, i)
	}
	if !checksum.AnySupported(step.Checksums) {
		return fmt.Errorf("MAN_CHECKSUMS: %s: install step %d declares no supported checksum algorithm", name, i)
	}
	if step.SingleFile() {
		if step.Type == "" {
			return fmt.Errorf("MAN_TYPE: %s: install step %d needs a type or a files list", name, i)
		}
		return validateFile(name, InstallFile{Name: step.Name, Type: step.Type}, false)
	}
	if step.Name != "" || step.Type != "" {
		return fmt.Errorf("MAN_INSTALL: %s: install step %d mixes single-file and archive mode", name, i)
	}
	for _, f := range step.Files {
		if f.Source == "" && f.Type != TypeHardlink {
			return fmt.Errorf("MAN_SOURCE: %s: file entry %q has no source", name, f.Name)
		}
		if err := validateFile(name, f, true); err != nil {
			return err
		}
	}
	return nil
}

func validateFile(name string, f InstallFile, named bool) error {
	if _, ok := allowedTypes[f.Type]; !ok {
		return fmt.Errorf("MAN_TYPE: %s: unsupported target type %q", name, f.Type)
	}
	if named && f.TargetName() == "" {
		return fmt.Errorf("MAN_NAME: %s: file entry has neither name nor source", name)
	}
	switch f.Type {
	case TypeMan:
		if f.Section < 1 || f.Section > 9 {
			return fmt.Errorf("MAN_SECTION: %s: manpage %q needs a section between 1 and 9", name, f.TargetName())
		}
	case TypeCompletion:
		if _, ok := allowedShells[f.Shell]; !ok {
			return fmt.Errorf("MAN_SHELL: %s: completion %q has unsupported shell %q", name, f.TargetName(), f.Shell)
		}
	case TypeHardlink:
		if f.Source == "" || f.Name == "" {
			return fmt.Errorf("MAN_HARDLINK: %s: hardlink entries need both source and name", name)
		}
		if f.Source == f.Name {
			return fmt.Errorf("MAN_HARDLINK: %s: hardlink %q links to itself", name, f.Name)
		}
	}
	return nil
}
