// Package manifest implements read-modify-write of the destination JSON
// manifest.
//
// Objects are decoded into an insertion-ordered map of raw JSON values, so a
// rewrite keeps the original key order at every nesting level and touches
// nothing but the keys it sets.
package manifest
