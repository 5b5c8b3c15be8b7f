package pack

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// tarMemberNames lists the entry names of a gzipped tar archive.
func tarMemberNames(t *testing.T, archivePath string) []string {
	t.Helper()

	file, err := os.Open(archivePath)
	require.NoError(t, err)

	defer func() {
		_ = file.Close()
	}()

	gzReader, err := gzip.NewReader(file)
	require.NoError(t, err)

	tarReader := tar.NewReader(gzReader)

	var names []string

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)
		names = append(names, header.Name)
	}

	return names
}

// TestWriteTarGz_DirectoryKeepsBaseName archives a directory under its own name.
func TestWriteTarGz_DirectoryKeepsBaseName(t *testing.T) {
	t.Parallel()

	inputDir := filepath.Join(t.TempDir(), "assets")
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "index.html"), []byte("<html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "css", "app.css"), []byte("body{}"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "web.tar.gz")
	require.NoError(t, writeTarGz(archivePath, []string{inputDir}))

	names := tarMemberNames(t, archivePath)
	require.ElementsMatch(t, []string{"assets/index.html", "assets/css/app.css"}, names)
}

// TestWriteTarGz_FileUsesBaseName archives a single file flat.
func TestWriteTarGz_FileUsesBaseName(t *testing.T) {
	t.Parallel()

	input := filepath.Join(t.TempDir(), "api")
	require.NoError(t, os.WriteFile(input, []byte("bin"), 0o755))

	archivePath := filepath.Join(t.TempDir(), "api.tar.gz")
	require.NoError(t, writeTarGz(archivePath, []string{input}))

	require.Equal(t, []string{"api"}, tarMemberNames(t, archivePath))
}

// TestWriteZip_MixedInputs archives a file flat and a directory by relative path.
func TestWriteZip_MixedInputs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	binary := filepath.Join(root, "api")
	require.NoError(t, os.WriteFile(binary, []byte("bin"), 0o755))

	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "README.md"), []byte("# docs"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, writeZip(archivePath, []string{binary, docs}))

	reader, err := zip.OpenReader(archivePath)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	var names []string
	for _, entry := range reader.File {
		names = append(names, entry.Name)
	}

	require.ElementsMatch(t, []string{"api", "README.md"}, names)
}

// TestWriteTarGz_MissingInput surfaces the stat failure.
func TestWriteTarGz_MissingInput(t *testing.T) {
	t.Parallel()

	archivePath := filepath.Join(t.TempDir(), "bad.tar.gz")
	err := writeTarGz(archivePath, []string{filepath.Join(t.TempDir(), "ghost")})
	require.Error(t, err)
}
