// Package syncer implements the repository synchronization decision
// procedure, the core logic of labsync.
//
// Given a remote URL and a local path, the Syncer produces a local
// directory mirroring the remote's default branch, or fails loudly.
// Which operation runs depends on the observed state of the local path:
//
//   - absent: clone the remote
//   - populated (has commits): set aside local edits if any, then pull,
//     probing the candidate branches in order
//   - empty (valid repo, no commits): fetch, then check out the first
//     candidate branch that exists on the remote
//   - invalid (exists but not a working copy): fail without touching it
//
// The one tolerated partial success is an empty working copy whose
// remote has none of the candidate branches either: the directory is
// treated as intentionally empty and the run succeeds with a notice.
//
// The Syncer talks to git through the GitOps interface, so the whole
// decision procedure is unit-testable against a fake with no network
// or subprocess involved.
package syncer
