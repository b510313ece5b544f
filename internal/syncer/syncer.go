// Package syncer implements the repository synchronization decision
// procedure.
package syncer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// GitOps is the subset of git operations the decision procedure needs.
// git.Runner satisfies it; tests substitute a scripted fake so every
// branch of the procedure can be exercised without a real remote.
type GitOps interface {
	// Classify reports which of the four repository states the local
	// path is in.
	Classify(path string) model.RepoState

	// Clone clones the remote repository at url into path.
	Clone(url, path string) error

	// IsDirty reports whether the working copy has uncommitted local
	// modifications, untracked files included.
	IsDirty(dir string) (bool, error)

	// StashPush sets aside all uncommitted modifications under the
	// given stash message.
	StashPush(dir, message string) error

	// Pull runs fetch-and-merge from the named remote branch.
	Pull(dir, remote, branch string) error

	// Fetch updates remote-tracking refs without touching the working
	// tree.
	Fetch(dir, remote string) error

	// RemoteBranchExists reports whether the remote-tracking ref for
	// the branch is present after a fetch.
	RemoteBranchExists(dir, remote, branch string) bool

	// CheckoutTracking checks out the named branch, creating a local
	// tracking branch from the fetched remote ref.
	CheckoutTracking(dir, branch string) error

	// CurrentBranch returns the short name of the checked-out branch.
	CurrentBranch(dir string) (string, error)
}

// Spec carries the explicit inputs of one synchronization run. All
// commands build it from the loaded configuration; tests build it
// directly. There is no global state involved.
type Spec struct {
	// RemoteURL is the remote repository to synchronize from. Required.
	RemoteURL string

	// Path is the local repository directory. Required.
	Path string

	// Branches is the ordered candidate branch list; the first branch
	// that pulls or checks out successfully wins. Required (at least
	// one entry).
	Branches []string

	// Remote is the git remote name operations run against. Defaults
	// to "origin" when empty.
	Remote string
}

// validate checks the required fields and fills the remote default.
// The configuration layer performs the same checks on file contents;
// repeating them here protects direct library callers.
func (s *Spec) validate() error {
	var missing []string
	if s.RemoteURL == "" {
		missing = append(missing, "remote URL")
	}
	if s.Path == "" {
		missing = append(missing, "local path")
	}
	if len(s.Branches) == 0 {
		missing = append(missing, "candidate branches")
	}
	if len(missing) > 0 {
		return model.NewCLIError(
			model.ExitConfigError,
			fmt.Sprintf("synchronization spec incomplete: missing %s", strings.Join(missing, ", ")),
		)
	}
	if s.Remote == "" {
		s.Remote = "origin"
	}
	return nil
}

// Syncer drives the synchronization decision procedure. It holds no
// repository state of its own; every run receives its inputs through a
// Spec.
type Syncer struct {
	git      GitOps
	progress io.Writer

	// now is stubbed in tests to make stash messages deterministic.
	now func() time.Time
}

// New creates a Syncer on top of the given git operations. Progress
// messages — one line per operation, mirroring what a user would type
// by hand — are written to progress; pass nil to discard them.
func New(g GitOps, progress io.Writer) *Syncer {
	if progress == nil {
		progress = io.Discard
	}
	return &Syncer{git: g, progress: progress, now: time.Now}
}

// Sync runs the decision procedure for the given spec and returns a
// structured report of what happened.
//
// Failure modes, each carried as a model.CLIError with its own exit
// code:
//   - clone failure → ExitCloneFailed, with a hint to verify
//     credentials and the URL
//   - local path exists but is not a working copy → ExitNotARepository,
//     with the directory left untouched
//   - stash, pull, fetch, or checkout failure → ExitSyncFailed
//
// An empty working copy whose remote has none of the candidate branches
// is not a failure: the report's outcome is OutcomeEmptyRemote and the
// error is nil.
func (s *Syncer) Sync(spec Spec) (*model.SyncReport, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	report := &model.SyncReport{
		RemoteURL: spec.RemoteURL,
		Path:      spec.Path,
	}

	// Step 1: observe the local state. Everything else branches on it.
	report.InitialState = s.git.Classify(spec.Path)

	switch report.InitialState {
	case model.RepoAbsent:
		return s.syncAbsent(spec, report)
	case model.RepoInvalid:
		return nil, model.NewCLIError(
			model.ExitNotARepository,
			fmt.Sprintf("%s exists but is not a git repository — refusing to touch it; move or remove the directory and rerun", spec.Path),
		)
	case model.RepoPopulated:
		return s.syncPopulated(spec, report)
	case model.RepoEmpty:
		return s.syncEmpty(spec, report)
	default:
		return nil, model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("unknown repository state %q at %s", report.InitialState, spec.Path),
		)
	}
}

// syncAbsent handles a missing local path: clone the remote into it.
// A clone failure almost always means bad credentials, a bad URL, or no
// network, so the error says exactly that.
func (s *Syncer) syncAbsent(spec Spec, report *model.SyncReport) (*model.SyncReport, error) {
	fmt.Fprintf(s.progress, "Cloning %s into %s ...\n", spec.RemoteURL, spec.Path)

	if err := s.git.Clone(spec.RemoteURL, spec.Path); err != nil {
		return nil, model.WrapCLIError(
			model.ExitCloneFailed,
			fmt.Sprintf("failed to clone %s — verify your git credentials and the repository URL", spec.RemoteURL),
			err,
		)
	}

	report.Outcome = model.OutcomeCloned

	// Record which branch the clone checked out. A fresh clone of an
	// empty remote has no branch yet; the clone itself still succeeded,
	// so a read failure here only leaves the field blank.
	if branch, err := s.git.CurrentBranch(spec.Path); err == nil {
		report.Branch = branch
	}

	return report, nil
}

// syncPopulated handles a working copy with recorded history: set aside
// local edits if any, then pull, probing the candidate branches in
// order until one succeeds.
func (s *Syncer) syncPopulated(spec Spec, report *model.SyncReport) (*model.SyncReport, error) {
	fmt.Fprintf(s.progress, "Local repository found at %s, updating ...\n", spec.Path)

	// Step 2: preserve local edits. Pulling over a dirty tree can
	// abort mid-merge or clobber unmerged files, so the edits go into
	// the stash first. They stay recoverable via `git stash list`.
	dirty, err := s.git.IsDirty(spec.Path)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitSyncFailed,
			fmt.Sprintf("failed to check for local modifications in %s", spec.Path),
			err,
		)
	}
	if dirty {
		fmt.Fprintf(s.progress, "Local edits detected — setting them aside (git stash) ...\n")
		message := fmt.Sprintf("labsync auto-stash before sync (%s)", s.now().UTC().Format(time.RFC3339))
		if err := s.git.StashPush(spec.Path, message); err != nil {
			return nil, model.WrapCLIError(
				model.ExitSyncFailed,
				fmt.Sprintf("failed to set aside local modifications in %s", spec.Path),
				err,
			)
		}
		report.Stashed = true
	}

	// Step 3: pull, first candidate branch that succeeds wins.
	var lastErr error
	for _, branch := range spec.Branches {
		fmt.Fprintf(s.progress, "Pulling %s/%s ...\n", spec.Remote, branch)
		if err := s.git.Pull(spec.Path, spec.Remote, branch); err != nil {
			lastErr = err
			continue
		}
		report.Outcome = model.OutcomePulled
		report.Branch = branch
		return report, nil
	}

	return nil, model.WrapCLIError(
		model.ExitSyncFailed,
		fmt.Sprintf("failed to pull any candidate branch (tried %s) — verify connectivity and credentials", strings.Join(spec.Branches, ", ")),
		lastErr,
	)
}

// syncEmpty handles a valid working copy with no commits yet: fetch,
// then check out the first candidate branch the remote actually has.
//
// When the remote has none of the candidates the directory is treated
// as intentionally empty and the run succeeds with a notice. This is
// the only tolerated partial success: a brand-new remote simply has
// nothing to synchronize yet.
func (s *Syncer) syncEmpty(spec Spec, report *model.SyncReport) (*model.SyncReport, error) {
	fmt.Fprintf(s.progress, "Repository at %s has no commits yet — fetching %s ...\n", spec.Path, spec.Remote)

	if err := s.git.Fetch(spec.Path, spec.Remote); err != nil {
		return nil, model.WrapCLIError(
			model.ExitSyncFailed,
			fmt.Sprintf("failed to fetch from %s", spec.Remote),
			err,
		)
	}

	for _, branch := range spec.Branches {
		if !s.git.RemoteBranchExists(spec.Path, spec.Remote, branch) {
			continue
		}
		fmt.Fprintf(s.progress, "Checking out %s ...\n", branch)
		if err := s.git.CheckoutTracking(spec.Path, branch); err != nil {
			return nil, model.WrapCLIError(
				model.ExitSyncFailed,
				fmt.Sprintf("failed to check out branch %s", branch),
				err,
			)
		}
		report.Outcome = model.OutcomeCheckedOut
		report.Branch = branch
		return report, nil
	}

	fmt.Fprintf(s.progress, "Remote has no candidate branches — treating repository as intentionally empty.\n")
	report.Outcome = model.OutcomeEmptyRemote
	return report, nil
}
