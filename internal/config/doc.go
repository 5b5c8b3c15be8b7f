// Package config holds the typed representation of the declarative release
// configuration, its validation rules and project auto-detection.
//
// The configuration is layered: global sections provide defaults that
// individual package entries override. This package only checks structure;
// collapsing the layers into concrete values is the plan resolver's job.
package config
