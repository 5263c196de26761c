package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTarGz(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		body := entries[name]
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("write body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return path
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func TestDetectKind(t *testing.T) {
	cases := map[string]Kind{
		"ripgrep-12.1.1-x86_64-unknown-linux-musl.tar.gz": KindTarGz,
		"tool.tgz":                 KindTarGz,
		"tool.tar":                 KindTar,
		"shfmt_v3.1.1_linux_amd64": KindNone,
		"tool.zip":                 KindZip,
	}
	for name, want := range cases {
		if got := DetectKind(name); got != want {
			t.Errorf("DetectKind(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExtractTarGz(t *testing.T) {
	artifact := writeTarGz(t, map[string]string{
		"ripgrep-12.1.1/rg":        "binary bytes",
		"ripgrep-12.1.1/doc/rg.1":  "manpage",
		"./ripgrep-12.1.1/rg.fish": "completions",
	})

	rc, err := Extract(artifact, KindTarGz, "ripgrep-12.1.1/doc/rg.1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "manpage" {
		t.Errorf("content = %q, want manpage", got)
	}

	// Leading "./" in the archive entry does not hide it.
	rc2, err := Extract(artifact, KindTarGz, "ripgrep-12.1.1/rg.fish")
	if err != nil {
		t.Fatalf("Extract dotted entry: %v", err)
	}
	rc2.Close()
}

func TestExtractZip(t *testing.T) {
	artifact := writeZip(t, map[string]string{"tool/tool": "zipped binary"})
	rc, err := Extract(artifact, KindZip, "tool/tool")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "zipped binary" {
		t.Errorf("content = %q", got)
	}
}

func TestExtractPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shfmt_v3.1.1_linux_amd64")
	if err := os.WriteFile(path, []byte("standalone"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, source := range []string{"", "shfmt_v3.1.1_linux_amd64"} {
		rc, err := Extract(path, KindNone, source)
		if err != nil {
			t.Fatalf("Extract(%q): %v", source, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != "standalone" {
			t.Errorf("content = %q", got)
		}
	}
}

func TestExtractEntryNotFound(t *testing.T) {
	artifact := writeTarGz(t, map[string]string{"a/b": "x"})
	_, err := Extract(artifact, KindTarGz, "a/missing")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	plain := filepath.Join(t.TempDir(), "plain")
	os.WriteFile(plain, []byte("x"), 0o644)
	if _, err := Extract(plain, KindNone, "other-name"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound for mismatched plain name, got %v", err)
	}
}

func TestList(t *testing.T) {
	artifact := writeTarGz(t, map[string]string{"dir/a": "1", "dir/b": "2"})
	names, err := List(artifact, KindTarGz)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "dir/a" || names[1] != "dir/b" {
		t.Errorf("names = %v", names)
	}

	plain := filepath.Join(t.TempDir(), "tool")
	os.WriteFile(plain, []byte("x"), 0o644)
	names, err = List(plain, KindNone)
	if err != nil || len(names) != 1 || names[0] != "tool" {
		t.Errorf("plain list = %v, %v", names, err)
	}
}
