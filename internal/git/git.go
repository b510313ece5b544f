// Package git wraps the git CLI for the labsync bootstrap pipeline.
//
// The Runner exposes exactly the operations the synchronizer and the
// identity configuration need. Every command failure is returned as a
// *CommandError with the arguments and captured stderr attached; mapping
// failures to exit codes is the caller's job, which keeps this layer
// reusable across commands with different failure semantics.
package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// CommandError is the structured failure result of a git invocation.
// It carries enough context to build a diagnostic without re-running
// the command, and unwraps to the underlying exec error.
type CommandError struct {
	// Args are the git arguments that were run (without the leading
	// "git" or the -C directory flag).
	Args []string

	// Stderr is the trimmed standard error output of the failed command.
	// Git writes its user-facing diagnostics here.
	Stderr string

	// Err is the underlying error from os/exec, typically an
	// *exec.ExitError carrying the non-zero exit status.
	Err error
}

// Error satisfies the error interface. The message names the failed
// subcommand and includes git's own stderr diagnostic when present.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes git operations by invoking the git CLI.
//
// It is currently stateless — all methods receive the repository path
// as a parameter. The struct exists as a receiver to support future
// extensions such as a configurable git binary path.
type Runner struct{}

// NewRunner creates a new git Runner instance.
//
// Currently there is no initialization logic, but this constructor
// follows Go convention and allows us to add setup code later
// (e.g., verifying git is installed) without breaking callers.
func NewRunner() *Runner {
	return &Runner{}
}

// Version returns the version string reported by the git binary,
// e.g. "git version 2.43.0". Used by the doctor command.
func (r *Runner) Version() (string, error) {
	output, err := r.run("", "version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Classify inspects a local path and reports which of the four
// repository states it is in. The synchronizer's whole decision
// procedure branches on this result.
//
// Classification rules:
//   - path missing                         → RepoAbsent
//   - path is a file, or not a working copy → RepoInvalid
//   - working copy with at least one commit → RepoPopulated
//   - working copy with no commits yet      → RepoEmpty
func (r *Runner) Classify(path string) model.RepoState {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return model.RepoAbsent
	}
	if err != nil || !info.IsDir() {
		// A plain file at the repository path counts as a foreign
		// object, same as an unrelated directory.
		return model.RepoInvalid
	}

	if !r.IsRepo(path) {
		return model.RepoInvalid
	}

	if r.HasCommits(path) {
		return model.RepoPopulated
	}
	return model.RepoEmpty
}

// Clone clones the remote repository at url into path.
// The parent directory must already exist; path itself must not.
func (r *Runner) Clone(url, path string) error {
	_, err := r.run("", "clone", url, path)
	return err
}

// IsRepo checks whether the given directory is a git working copy.
//
// This uses `git rev-parse --git-dir`, which exits non-zero when the
// directory is not inside a repository. A nested path inside some other
// repository would also pass, but the synchronizer only ever probes the
// dedicated repository directory under the workspace root.
func (r *Runner) IsRepo(dir string) bool {
	_, err := r.run(dir, "rev-parse", "--git-dir")
	return err == nil
}

// HasCommits checks whether the working copy has at least one recorded
// commit. `git rev-parse --verify HEAD` fails in a freshly initialized
// repository because HEAD points at an unborn branch.
func (r *Runner) HasCommits(dir string) bool {
	_, err := r.run(dir, "rev-parse", "--verify", "HEAD")
	return err == nil
}

// IsDirty reports whether the working copy has uncommitted local
// modifications, including untracked files. It parses the machine
// output of `git status --porcelain`, which is empty for a clean tree.
func (r *Runner) IsDirty(dir string) (bool, error) {
	output, err := r.run(dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

// StashPush sets aside all uncommitted modifications, untracked files
// included, under the given stash message. The edits stay recoverable
// via `git stash list` / `git stash pop`; labsync never drops a stash
// it created.
func (r *Runner) StashPush(dir, message string) error {
	_, err := r.run(dir, "stash", "push", "--include-untracked", "-m", message)
	return err
}

// StashCount returns the number of entries in the stash store.
// Used by the status command to surface set-aside edits.
func (r *Runner) StashCount(dir string) (int, error) {
	output, err := r.run(dir, "rev-list", "--walk-reflogs", "--count", "refs/stash")
	if err != nil {
		// No refs/stash ref exists until the first stash is created.
		// Git exits non-zero in that case, which simply means zero entries.
		return 0, nil
	}
	count, convErr := strconv.Atoi(strings.TrimSpace(output))
	if convErr != nil {
		return 0, fmt.Errorf("unexpected stash count output %q: %w", output, convErr)
	}
	return count, nil
}

// Pull runs fetch-and-merge from the named remote branch.
func (r *Runner) Pull(dir, remote, branch string) error {
	_, err := r.run(dir, "pull", remote, branch)
	return err
}

// Fetch updates the remote-tracking refs from the named remote without
// touching the working tree.
func (r *Runner) Fetch(dir, remote string) error {
	_, err := r.run(dir, "fetch", remote)
	return err
}

// RemoteBranchExists checks whether the remote-tracking ref for the
// given branch is present after a fetch. It uses `git show-ref` with
// --verify so only the exact ref matches, and --quiet because only the
// exit status matters.
func (r *Runner) RemoteBranchExists(dir, remote, branch string) bool {
	ref := fmt.Sprintf("refs/remotes/%s/%s", remote, branch)
	_, err := r.run(dir, "show-ref", "--verify", "--quiet", ref)
	return err == nil
}

// CheckoutTracking checks out the named branch. After a fetch, git
// resolves a bare branch name against the unique remote-tracking ref
// and creates a local tracking branch for it, which is exactly the
// behavior needed to populate an empty working copy.
func (r *Runner) CheckoutTracking(dir, branch string) error {
	_, err := r.run(dir, "checkout", branch)
	return err
}

// CurrentBranch returns the short name of the currently checked-out
// branch, or "HEAD" in a detached state.
func (r *Runner) CurrentBranch(dir string) (string, error) {
	output, err := r.run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Head returns the abbreviated commit hash the working copy points to.
func (r *Runner) Head(dir string) (string, error) {
	output, err := r.run(dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// LsRemote probes whether the remote at url is reachable with the
// user's current credentials. Listing heads of an empty repository
// succeeds with no output, so an empty remote still counts as
// reachable — only connectivity and authentication failures error.
func (r *Runner) LsRemote(url string) error {
	_, err := r.run("", "ls-remote", "--heads", url)
	return err
}

// GlobalConfigGet reads a key from the user's global git configuration.
// Returns the empty string (and no error) when the key is unset: git
// exits with status 1 for a missing key, and that is an answer, not a
// failure. Other exit codes — unreadable or malformed config files —
// are returned as errors.
func (r *Runner) GlobalConfigGet(key string) (string, error) {
	output, err := r.run("", "config", "--global", "--get", key)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			var exitErr *exec.ExitError
			if errors.As(cmdErr.Err, &exitErr) && exitErr.ExitCode() == 1 {
				return "", nil
			}
		}
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// GlobalConfigSet writes a key into the user's global git configuration.
// Callers are expected to check GlobalConfigGet first: identity setup is
// read-if-present, write-if-absent, and never overwrites existing values.
func (r *Runner) GlobalConfigSet(key, value string) error {
	_, err := r.run("", "config", "--global", key, value)
	return err
}

// run executes a git command with the given arguments, optionally
// scoped to a directory via the -C flag.
//
// It captures stdout and stderr separately. On success (exit code 0)
// it returns the stdout output. On failure it returns a *CommandError
// with the trimmed stderr attached.
//
// The -C flag is preferred over exec.Cmd.Dir because it is handled by
// git itself and behaves consistently across all git subcommands.
func (r *Runner) run(dir string, args ...string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.String(), nil
}
