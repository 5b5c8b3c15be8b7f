// Package pack assembles release bundles from raw build outputs and
// verifies them afterwards. A bundle holds the configured archives per
// target, one SBOM document per (package, target), detached signatures
// when enabled, a deterministic manifest, a SHA256SUMS ledger in
// production order and a provenance attestation.
package pack
