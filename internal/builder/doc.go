// Package builder invokes each ecosystem's native toolchain to turn a
// resolved package plan into raw build outputs. Commands run through an
// injectable Runner so the pipeline stays testable without toolchains
// installed.
package builder
