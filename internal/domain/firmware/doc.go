// Package firmware contains the domain types of a firmware export.
//
// It defines the Version identifier stamped into the destination manifest,
// the scanner extracting it from a C version header, and the sentinel
// errors classifying every fatal export condition.
package firmware
