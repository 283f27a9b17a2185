// Package revmacro prints the source revision of the firmware checkout as a
// compiler define for the build system's build_flags hook.
package revmacro
