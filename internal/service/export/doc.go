// Package export publishes a freshly built firmware artifact into the
// destination project and stamps its manifest with the firmware version.
//
// The procedure is strictly linear: check destination, locate artifact,
// extract version, take the export marker, refuse a dirty tree, sync,
// copy, stamp, and optionally commit and push. The first failure aborts the
// run and nothing done before it is rolled back.
package export
