// Package artifact locates firmware build outputs and publishes them into a
// destination tree.
//
// Publishing swaps the target atomically and verifies the written bytes
// against a SHA-512 checksum of the source.
package artifact
