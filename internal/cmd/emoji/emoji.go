// Package emoji provides symbol constants for CLI output.
package emoji

// Symbols shared by all commands.
const (
	// Success marks a completed run, a valid export or a fresh publish.
	Success = "✓"

	// Error marks a failed file or a failed run.
	Error = "✗"

	// Warning marks load errors that did not stop a run.
	Warning = "!"

	// Skipped marks work that was not needed, such as an unchanged export.
	Skipped = "-"

	// Current marks the machine the command runs on.
	Current = "→"

	// Info marks informational lines such as dry run notices.
	Info = "i"
)
