// Package version exposes build metadata injected at link time and the
// cobra `version` subcommand that prints it.
package version
