// Package git provides the version-control operations used by the
// labsync CLI.
//
// All operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Honors the user's real credential helpers and global configuration,
//     which synchronization against authenticated remotes depends on
//
// The Runner struct provides clone, fetch, pull, stash, and inspection
// operations, plus helpers for global identity configuration. Failures
// are returned as *CommandError values carrying the command arguments
// and captured stderr, so callers can classify them without parsing
// display text.
package git
