// Package cli turns command-line arguments into an app.Config. Bad input is
// reported as an *ExitError carrying the process exit code.
package cli
