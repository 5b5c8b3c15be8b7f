package pack

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oshokin/shippo/internal/plan"
)

// sbomSuffix is appended to the artifact base name to form the SBOM filename.
const sbomSuffix = "-sbom.cdx.json"

// writeSbomDocument emits a minimal CycloneDX 1.4 document for one
// (package, target) pair. Component enumeration is left to dedicated
// scanners; the document records the released component itself so every
// bundle carries an SBOM entry, and the target keeps documents of the
// same package distinguishable.
func writeSbomDocument(path string, pkg *plan.PackagePlan, version, target string) error {
	document := map[string]any{
		"bomFormat":   "CycloneDX",
		"specVersion": "1.4",
		"version":     1,
		"metadata": map[string]any{
			"component": map[string]any{
				"type":    "application",
				"name":    pkg.Name,
				"version": version,
				"target":  target,
			},
		},
		"components": []any{},
	}

	contents, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sbom for %s: %w", pkg.Name, err)
	}

	if err := os.WriteFile(path, append(contents, '\n'), 0o600); err != nil {
		return fmt.Errorf("write sbom %s: %w", path, err)
	}

	return nil
}
