// Package lock implements the export marker: a small YAML file recording
// which process is currently exporting into a destination project.
//
// Markers live in the system temp directory, keyed by the absolute
// destination path, so they never appear in the destination working tree.
// A marker whose owning process is gone is considered stale and replaced.
package lock
