// Package vcs runs the external version-control commands used by the export
// tools.
//
// Client is the narrow surface the export procedure depends on; Git
// implements it by invoking the git binary with its working directory set to
// the repository root, never by changing the process working directory.
package vcs
