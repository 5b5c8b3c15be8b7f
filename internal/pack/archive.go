package pack

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeTarGz builds a gzipped tar archive from the given inputs.
// A file input enters the archive under its base name; a directory input
// enters recursively under its own base name, preserving relative paths.
func writeTarGz(dest string, inputs []string) error {
	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dest, err)
	}

	defer func() {
		_ = out.Close()
	}()

	gzWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzWriter)

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("stat %s: %w", input, err)
		}

		if info.IsDir() {
			if err := tarAppendDir(tarWriter, input, filepath.Base(input)); err != nil {
				return err
			}

			continue
		}

		if err := tarAppendFile(tarWriter, input, filepath.Base(input), info); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("finish tar %s: %w", dest, err)
	}

	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("finish gzip %s: %w", dest, err)
	}

	return nil
}

// tarAppendDir walks dir and appends every regular file under prefix.
func tarAppendDir(w *tar.Writer, dir, prefix string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		return tarAppendFile(w, path, filepath.ToSlash(filepath.Join(prefix, rel)), info)
	})
}

// tarAppendFile appends a single regular file under the given archive name.
func tarAppendFile(w *tar.Writer, path, name string, info os.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header %s: %w", path, err)
	}

	header.Name = name

	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header %s: %w", name, err)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}

	return nil
}

// writeZip builds a zip archive from the given inputs. A file input enters
// under its base name; a directory input contributes its files at their
// paths relative to the directory.
func writeZip(dest string, inputs []string) error {
	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dest, err)
	}

	defer func() {
		_ = out.Close()
	}()

	zipWriter := zip.NewWriter(out)

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("stat %s: %w", input, err)
		}

		if info.IsDir() {
			if err := zipAppendDir(zipWriter, input); err != nil {
				return err
			}

			continue
		}

		if err := zipAppendFile(zipWriter, input, filepath.Base(input)); err != nil {
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finish zip %s: %w", dest, err)
	}

	return nil
}

// zipAppendDir adds every regular file under dir at its relative path.
func zipAppendDir(w *zip.Writer, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		return zipAppendFile(w, path, filepath.ToSlash(rel))
	})
}

// zipAppendFile adds one file to the archive under the given name.
func zipAppendFile(w *zip.Writer, path, name string) error {
	entry, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}

	return nil
}
