// Package config defines the export settings shared by the binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Every path is resolved explicitly: relative build paths against the
// firmware root, relative destination paths against the destination root.
// Nothing depends on the process working directory beyond the firmware root
// default of ".".
package config
