// Package extract unpacks downloaded portal archives and indexes the
// extracted per-sample files for the merge stages.
package extract

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveError reports one archive that could not be extracted. A bad
// archive does not stop extraction of its siblings; all failures are
// returned together.
type ArchiveError struct {
	Archive string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Archive, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Archives extracts every tar.gz archive into dest. Extraction failures are
// collected and returned as one aggregate error; archives that extracted
// cleanly are removed unless keep is set.
func Archives(paths []string, dest string, keep bool) error {
	var failures []error
	for _, path := range paths {
		if err := archive(path, dest); err != nil {
			failures = append(failures, &ArchiveError{Archive: path, Err: err})
			continue
		}
		if !keep {
			os.Remove(path)
		}
	}
	return errors.Join(failures...)
}

func archive(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("not a valid gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("corrupt tar stream: %w", err)
		}

		name := filepath.Clean(header.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry escapes destination: %q", header.Name)
		}
		target := filepath.Join(dest, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := writeFile(target, tr, header.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// symlinks and specials are not expected in portal archives
		}
	}
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// Index maps an extracted file's base name to its absolute path. The merge
// stages join it against the sample sheet's File Name column.
type Index map[string]string

// BuildIndex walks dir and records every file whose name ends in one of the
// given suffixes.
func BuildIndex(dir string, suffixes ...string) (Index, error) {
	index := make(Index)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				index[name] = abs
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index extracted files in %s: %w", dir, err)
	}
	return index, nil
}
