// Package manifest defines the on-disk release manifest: a deterministic
// JSON document listing every artifact, SBOM and signature in a bundle
// together with its size and content hash.
package manifest
