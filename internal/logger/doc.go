// Package logger wraps zap for the export tools:
//   - a global sugared logger writing a console encoding to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing,
//   - convenience functions (InfoKV, WarnKV, etc.).
//
// Logs never go to stdout: the build system reads tool output from stdout
// (see git-rev-macro), so stdout is reserved for results.
package logger
