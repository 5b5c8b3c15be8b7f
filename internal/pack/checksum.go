package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LedgerFilename is the plain-text checksum sidecar in the bundle directory.
const LedgerFilename = "SHA256SUMS"

// SHA256File returns the hex-encoded SHA-256 of a file's contents.
func SHA256File(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ledgerEntry is one (hash, filename) pair of the checksum ledger.
// Entries keep the exact order files were produced in.
type ledgerEntry struct {
	sha      string
	filename string
}

// renderLedger formats ledger entries in the sha256sum convention:
// hex digest, two spaces, filename, newline.
func renderLedger(entries []ledgerEntry) string {
	var builder strings.Builder

	for _, entry := range entries {
		builder.WriteString(entry.sha)
		builder.WriteString("  ")
		builder.WriteString(entry.filename)
		builder.WriteString("\n")
	}

	return builder.String()
}
