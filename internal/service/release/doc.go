// Package release orchestrates the full pipeline behind the CLI commands:
// configuration loading, plan resolution, per-ecosystem builds, bundle
// packaging, verification and GitHub publishing.
package release
