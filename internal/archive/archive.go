// Package archive extracts named entries from downloaded artifacts. The
// supported kinds are a fixed set: tar (optionally gzip-compressed), zip,
// and plain files, which behave as a single implicit entry.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Kind identifies how an artifact is unpacked.
type Kind int

const (
	// KindNone marks a plain, non-archive artifact.
	KindNone Kind = iota
	KindTar
	KindTarGz
	KindZip
)

// ErrEntryNotFound is returned when the addressed path does not exist in
// the archive. It is fatal for the install step that declared it.
var ErrEntryNotFound = errors.New("ARC_ENTRY: entry not found in archive")

// DetectKind determines the archive kind from the artifact filename.
func DetectKind(filename string) Kind {
	switch {
	case strings.HasSuffix(filename, ".tar.gz"), strings.HasSuffix(filename, ".tgz"):
		return KindTarGz
	case strings.HasSuffix(filename, ".tar"):
		return KindTar
	case strings.HasSuffix(filename, ".zip"):
		return KindZip
	default:
		return KindNone
	}
}

// List returns the file entry names of the artifact. A plain artifact
// lists as its own basename.
func List(artifact string, kind Kind) ([]string, error) {
	switch kind {
	case KindNone:
		return []string{path.Base(artifact)}, nil
	case KindZip:
		zr, err := zip.OpenReader(artifact)
		if err != nil {
			return nil, fmt.Errorf("ARC_OPEN: %w", err)
		}
		defer zr.Close()
		names := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			names = append(names, entryName(f.Name))
		}
		return names, nil
	default:
		tr, closer, err := openTar(artifact, kind)
		if err != nil {
			return nil, err
		}
		defer closer.Close()
		var names []string
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return names, nil
			}
			if err != nil {
				return nil, fmt.Errorf("ARC_READ: %w", err)
			}
			if hdr.Typeflag == tar.TypeReg {
				names = append(names, entryName(hdr.Name))
			}
		}
	}
}

// Extract returns a reader over the entry addressed by source. For a plain
// artifact, source must be empty or the artifact's basename. The caller
// closes the returned reader.
func Extract(artifact string, kind Kind, source string) (io.ReadCloser, error) {
	switch kind {
	case KindNone:
		if source != "" && source != path.Base(artifact) {
			return nil, fmt.Errorf("%w: %q (artifact is not an archive)", ErrEntryNotFound, source)
		}
		f, err := os.Open(artifact)
		if err != nil {
			return nil, fmt.Errorf("ARC_OPEN: %w", err)
		}
		return f, nil
	case KindZip:
		return extractZip(artifact, source)
	default:
		return extractTar(artifact, kind, source)
	}
}

func openTar(artifact string, kind Kind) (*tar.Reader, io.Closer, error) {
	f, err := os.Open(artifact)
	if err != nil {
		return nil, nil, fmt.Errorf("ARC_OPEN: %w", err)
	}
	if kind == KindTar {
		return tar.NewReader(f), f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("ARC_OPEN: %w", err)
	}
	return tar.NewReader(gz), multiCloser{gz, f}, nil
}

func extractTar(artifact string, kind Kind, source string) (io.ReadCloser, error) {
	tr, closer, err := openTar(artifact, kind)
	if err != nil {
		return nil, err
	}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			closer.Close()
			return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, source)
		}
		if err != nil {
			closer.Close()
			return nil, fmt.Errorf("ARC_READ: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && entryName(hdr.Name) == entryName(source) {
			return readCloser{tr, closer}, nil
		}
	}
}

func extractZip(artifact, source string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(artifact)
	if err != nil {
		return nil, fmt.Errorf("ARC_OPEN: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || entryName(f.Name) != entryName(source) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("ARC_READ: %w", err)
		}
		return readCloser{rc, zr}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, source)
}

// entryName normalizes in-archive paths so "./dir/file" addresses the same
// entry as "dir/file".
func entryName(name string) string {
	return strings.TrimPrefix(path.Clean(name), "./")
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (rc readCloser) Close() error { return rc.closer.Close() }

type multiCloser []io.Closer

func (mc multiCloser) Close() error {
	var err error
	for _, c := range mc {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
