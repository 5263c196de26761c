package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ripgrepTOML = `
[meta]
name = "ripgrep"
version = "12.1.1"
url = "https://github.com/BurntSushi/ripgrep"
license = "MIT OR Unlicense"

[discover]
binary = "rg"

[discover.version_check]
args = ["--version"]
pattern = 'ripgrep (\d\S+)'

[[install]]
download = "https://example.com/ripgrep-12.1.1-x86_64-unknown-linux-musl.tar.gz"

[install.checksums]
b2 = "1c97a37e397ab338d5c0b9"
sha256 = "88d3b735e43f6f16a0181a8fec48847693fae80168d5f889fdbdeb962f1fc804"

[[install.files]]
source = "ripgrep-12.1.1-x86_64-unknown-linux-musl/rg"
type = "bin"

[[install.files]]
source = "ripgrep-12.1.1-x86_64-unknown-linux-musl/doc/rg.1"
type = "man"
section = 1

[[install.files]]
source = "ripgrep-12.1.1-x86_64-unknown-linux-musl/complete/rg.fish"
type = "completion"
shell = "fish"

[[install.files]]
source = "rg"
name = "ripgrep"
type = "hardlink"
`

const shfmtTOML = `
[meta]
name = "shfmt"
version = "3.1.1"
url = "https://github.com/mvdan/sh"

[discover]
binary = "shfmt"

[discover.version_check]
args = ["-version"]
pattern = 'v(\d\S+)'

[[install]]
download = "https://example.com/shfmt_v3.1.1_linux_amd64"
name = "shfmt"
type = "bin"

[install.checksums]
sha256 = "c5794c1ac081f0028d60317454fe388068ab5af7740a83e393515170a7157dce"
`

func TestParseArchiveManifest(t *testing.T) {
	m, err := Parse([]byte(ripgrepTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Meta.Name != "ripgrep" || m.Meta.Version != "12.1.1" {
		t.Errorf("unexpected meta: %+v", m.Meta)
	}
	if m.Discover.Binary != "rg" {
		t.Errorf("unexpected discover binary %q", m.Discover.Binary)
	}
	if len(m.Install) != 1 {
		t.Fatalf("expected 1 install step, got %d", len(m.Install))
	}
	step := m.Install[0]
	if step.SingleFile() {
		t.Error("archive step reported as single file")
	}
	if got := step.Filename(); got != "ripgrep-12.1.1-x86_64-unknown-linux-musl.tar.gz" {
		t.Errorf("Filename() = %q", got)
	}
	if step.Checksums["b2"] == "" || step.Checksums["sha256"] == "" {
		t.Errorf("checksums not decoded: %v", step.Checksums)
	}
	files := step.TargetFiles()
	if len(files) != 4 {
		t.Fatalf("expected 4 file entries, got %d", len(files))
	}
	if files[0].TargetName() != "rg" {
		t.Errorf("binary target name = %q", files[0].TargetName())
	}
	if files[3].Type != TypeHardlink || files[3].TargetName() != "ripgrep" {
		t.Errorf("unexpected hardlink entry: %+v", files[3])
	}
}

func TestParseSingleFileManifest(t *testing.T) {
	m, err := Parse([]byte(shfmtTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	step := m.Install[0]
	if !step.SingleFile() {
		t.Fatal("single-file step reported as archive")
	}
	files := step.TargetFiles()
	if len(files) != 1 {
		t.Fatalf("expected 1 normalized entry, got %d", len(files))
	}
	if files[0].Source != "" {
		t.Errorf("single-file entry must have empty source, got %q", files[0].Source)
	}
	if files[0].Name != "shfmt" || files[0].Type != TypeBin {
		t.Errorf("unexpected entry: %+v", files[0])
	}
}

func TestSingleFileDefaultName(t *testing.T) {
	doc := strings.Replace(shfmtTOML,
		"download = \"https://example.com/shfmt_v3.1.1_linux_amd64\"\nname = \"shfmt\"\n",
		"download = \"https://example.com/shfmt_v3.1.1_linux_amd64\"\n", 1)
	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	files := m.Install[0].TargetFiles()
	if files[0].Name != "shfmt_v3.1.1_linux_amd64" {
		t.Errorf("default name should be URL basename, got %q", files[0].Name)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		errCode string
	}{
		{"missing name", func(s string) string { return strings.Replace(s, "name = \"ripgrep\"", "name = \"\"", 1) }, "MAN_META"},
		{"missing binary", func(s string) string { return strings.Replace(s, "binary = \"rg\"", "binary = \"\"", 1) }, "MAN_DISCOVER"},
		{"pattern without group", func(s string) string {
			return strings.Replace(s, `pattern = 'ripgrep (\d\S+)'`, `pattern = 'ripgrep \d\S+'`, 1)
		}, "MAN_PATTERN"},
		{"pattern two groups", func(s string) string {
			return strings.Replace(s, `pattern = 'ripgrep (\d\S+)'`, `pattern = '(ripgrep) (\d\S+)'`, 1)
		}, "MAN_PATTERN"},
		{"no checksums", func(s string) string {
			return strings.Replace(s, "[install.checksums]\nb2 = \"1c97a37e397ab338d5c0b9\"\nsha256 = \"88d3b735e43f6f16a0181a8fec48847693fae80168d5f889fdbdeb962f1fc804\"\n", "", 1)
		}, "MAN_CHECKSUMS"},
		{"unsupported checksums only", func(s string) string {
			return strings.Replace(s, "b2 = ", "md5 = ", 1)
		}, ""},
		{"bad type", func(s string) string { return strings.Replace(s, "type = \"man\"", "type = \"library\"", 1) }, "MAN_TYPE"},
		{"man without section", func(s string) string { return strings.Replace(s, "section = 1\n", "", 1) }, "MAN_SECTION"},
		{"bad shell", func(s string) string { return strings.Replace(s, "shell = \"fish\"", "shell = \"powershell\"", 1) }, "MAN_SHELL"},
		{"hardlink self link", func(s string) string {
			return strings.Replace(s, "name = \"ripgrep\"\ntype = \"hardlink\"", "name = \"rg\"\ntype = \"hardlink\"", 1)
		}, "MAN_HARDLINK"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.mutate(ripgrepTOML)))
			if tc.errCode == "" {
				if err != nil {
					t.Fatalf("expected manifest to stay valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errCode) {
				t.Errorf("error %q does not carry code %s", err, tc.errCode)
			}
		})
	}
}

func TestValidateMixedModes(t *testing.T) {
	doc := strings.Replace(ripgrepTOML,
		"download = \"https://example.com/ripgrep-12.1.1-x86_64-unknown-linux-musl.tar.gz\"",
		"download = \"https://example.com/ripgrep-12.1.1-x86_64-unknown-linux-musl.tar.gz\"\nname = \"rg\"", 1)
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "MAN_INSTALL") {
		t.Fatalf("expected MAN_INSTALL for mixed modes, got %v", err)
	}
}

func TestParseMalformedTOML(t *testing.T) {
	_, err := Parse([]byte("[meta\nname ="))
	if err == nil || !strings.Contains(err.Error(), "MAN_PARSE") {
		t.Fatalf("expected MAN_PARSE, got %v", err)
	}
}

func writeStore(t *testing.T, docs map[string]string) *Store {
	t.Helper()
	dir := t.TempDir()
	for name, doc := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return OpenStore(dir)
}

func TestStoreLoad(t *testing.T) {
	store := writeStore(t, map[string]string{"ripgrep.toml": ripgrepTOML, "shfmt.toml": shfmtTOML})

	m, err := store.Load("ripgrep")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Meta.Version != "12.1.1" {
		t.Errorf("unexpected version %q", m.Meta.Version)
	}

	if _, err := store.Load("nosuch"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing manifest should yield ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsPathNames(t *testing.T) {
	store := writeStore(t, map[string]string{"ripgrep.toml": ripgrepTOML})
	for _, name := range []string{"", "../ripgrep", "sub/ripgrep", ".hidden"} {
		if _, err := store.Load(name); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("name %q must be rejected outright, got %v", name, err)
		}
	}
}

func TestStoreNameMismatch(t *testing.T) {
	store := writeStore(t, map[string]string{"rg.toml": ripgrepTOML})
	if _, err := store.Load("rg"); err == nil || !strings.Contains(err.Error(), "MAN_NAME") {
		t.Errorf("declared name mismatch must fail, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	store := writeStore(t, map[string]string{
		"shfmt.toml":   shfmtTOML,
		"ripgrep.toml": ripgrepTOML,
		"README.md":    "not a manifest",
	})
	manifests, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("expected 2 manifests, got %d", len(manifests))
	}
	if manifests[0].Meta.Name != "ripgrep" || manifests[1].Meta.Name != "shfmt" {
		t.Errorf("listing not sorted by name: %s, %s", manifests[0].Meta.Name, manifests[1].Meta.Name)
	}
}

func TestStoreListBrokenManifest(t *testing.T) {
	store := writeStore(t, map[string]string{"ripgrep.toml": ripgrepTOML, "broken.toml": "[meta"})
	if _, err := store.List(); err == nil {
		t.Fatal("broken manifest must fail the listing")
	}
}
