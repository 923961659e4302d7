// Package config defines the pipeline settings used by release-builder and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type names the two external tools, the input files and the
// output locations, plus the per-stage timeout and retry policy. Every field
// has a conventional default, so the pipeline runs from a clean project
// checkout without a settings file.
package config
