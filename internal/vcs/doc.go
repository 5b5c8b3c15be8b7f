// Package vcs exposes the version-control oracle used for release metadata:
// current commit, remote URL, latest tag and changelog text. All answers are
// best-effort; the rest of the pipeline treats failures as missing values.
package vcs
