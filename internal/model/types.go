// Package model defines the domain types for the labsync CLI.
//
// All entities in this package represent the states and results of the
// bootstrap pipeline: workspace preparation, repository synchronization,
// and package provisioning. These types are used throughout the
// application for passing data between components.
//
// Key design decision: there is no persistent state owned by labsync.
// Every value here is reconstructed at runtime by probing the filesystem
// and the git working copy, so two consecutive runs always observe the
// real current state rather than a cached one.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// RepoState classifies the local repository directory before
// synchronization. The synchronizer's decision procedure branches on
// exactly these four states:
//
//	absent    → clone
//	populated → stash if dirty, then pull
//	empty     → fetch + checkout (tolerates an empty remote)
//	invalid   → fatal, no remediation
type RepoState string

const (
	// RepoAbsent indicates the local path does not exist yet.
	RepoAbsent RepoState = "absent"

	// RepoPopulated indicates a valid working copy with at least one
	// recorded commit.
	RepoPopulated RepoState = "populated"

	// RepoEmpty indicates a valid working copy with no commits yet
	// (freshly initialized, unpopulated).
	RepoEmpty RepoState = "empty"

	// RepoInvalid indicates the path exists but is not a git working copy.
	// This state is always fatal: labsync never touches a directory it
	// cannot positively identify, to avoid destroying unrelated user data.
	RepoInvalid RepoState = "invalid"
)

// String returns the string representation of RepoState.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s RepoState) String() string {
	return string(s)
}

// IsValid checks whether the RepoState value is one of the
// predefined valid states.
func (s RepoState) IsValid() bool {
	switch s {
	case RepoAbsent, RepoPopulated, RepoEmpty, RepoInvalid:
		return true
	default:
		return false
	}
}

// ParseRepoState converts a string to a RepoState.
// Returns an error if the string does not match any valid state.
func ParseRepoState(s string) (RepoState, error) {
	state := RepoState(strings.ToLower(s))
	if !state.IsValid() {
		return "", fmt.Errorf("invalid repository state: %q (valid: absent, populated, empty, invalid)", s)
	}
	return state, nil
}

// SyncOutcome describes how a successful synchronization run brought the
// local repository up to date. Exactly one outcome is produced per run.
type SyncOutcome string

const (
	// OutcomeCloned indicates the repository was cloned fresh because the
	// local path did not exist.
	OutcomeCloned SyncOutcome = "cloned"

	// OutcomePulled indicates an existing working copy was updated via
	// fetch-and-merge from one of the candidate branches.
	OutcomePulled SyncOutcome = "pulled"

	// OutcomeCheckedOut indicates an empty working copy was populated by
	// fetching and checking out a remote candidate branch.
	OutcomeCheckedOut SyncOutcome = "checked-out"

	// OutcomeEmptyRemote indicates the remote has no branches reachable.
	// This is the one tolerated partial success: the pipeline continues
	// with a notice instead of failing.
	OutcomeEmptyRemote SyncOutcome = "empty-remote"
)

// String returns the string representation of SyncOutcome.
func (o SyncOutcome) String() string {
	return string(o)
}

// IsValid checks whether the SyncOutcome value is one of the
// predefined valid outcomes.
func (o SyncOutcome) IsValid() bool {
	switch o {
	case OutcomeCloned, OutcomePulled, OutcomeCheckedOut, OutcomeEmptyRemote:
		return true
	default:
		return false
	}
}

// ParseSyncOutcome converts a string to a SyncOutcome.
// Returns an error if the string does not match any valid outcome.
func ParseSyncOutcome(s string) (SyncOutcome, error) {
	outcome := SyncOutcome(strings.ToLower(s))
	if !outcome.IsValid() {
		return "", fmt.Errorf("invalid sync outcome: %q (valid: cloned, pulled, checked-out, empty-remote)", s)
	}
	return outcome, nil
}

// SyncReport is the structured result of one synchronization run.
// It is returned by the synchronizer on success and rendered by the CLI
// as text or JSON. Tests assert on it instead of parsing console output.
type SyncReport struct {
	// RemoteURL is the remote repository the run synchronized against.
	RemoteURL string `json:"remoteUrl"`

	// Path is the absolute local repository directory.
	Path string `json:"path"`

	// InitialState is the repository state observed before any
	// synchronization operation ran.
	InitialState RepoState `json:"initialState"`

	// Outcome describes the operation that brought the local copy
	// up to date.
	Outcome SyncOutcome `json:"outcome"`

	// Branch is the candidate branch that won the probing sequence.
	// Empty when Outcome is empty-remote.
	Branch string `json:"branch,omitempty"`

	// Stashed reports whether uncommitted local modifications were
	// set aside before pulling. The edits remain recoverable via
	// `git stash list`.
	Stashed bool `json:"stashed"`
}

// Summary returns a one-line human-readable description of the report,
// used by the sync and up commands in text output mode.
func (r *SyncReport) Summary() string {
	switch r.Outcome {
	case OutcomeCloned:
		return fmt.Sprintf("cloned %s into %s", r.RemoteURL, r.Path)
	case OutcomePulled:
		if r.Stashed {
			return fmt.Sprintf("pulled %s (local edits stashed)", r.Branch)
		}
		return fmt.Sprintf("pulled %s", r.Branch)
	case OutcomeCheckedOut:
		return fmt.Sprintf("checked out %s", r.Branch)
	case OutcomeEmptyRemote:
		return "remote repository is empty — nothing to synchronize yet"
	default:
		return string(r.Outcome)
	}
}

// ProvisionMode selects how the package installer script is executed.
type ProvisionMode string

const (
	// ModeAuto prefers a local Rscript interpreter and falls back to the
	// container mode when none is on PATH.
	ModeAuto ProvisionMode = "auto"

	// ModeLocal runs the installer with the Rscript binary on PATH.
	ModeLocal ProvisionMode = "local"

	// ModeContainer runs the installer inside a Docker container with the
	// workspace bind-mounted.
	ModeContainer ProvisionMode = "container"
)

// String returns the string representation of ProvisionMode.
func (m ProvisionMode) String() string {
	return string(m)
}

// IsValid checks whether the ProvisionMode value is one of the
// predefined valid modes.
func (m ProvisionMode) IsValid() bool {
	switch m {
	case ModeAuto, ModeLocal, ModeContainer:
		return true
	default:
		return false
	}
}

// ParseProvisionMode converts a string to a ProvisionMode.
// Returns an error if the string does not match any valid mode.
func ParseProvisionMode(s string) (ProvisionMode, error) {
	mode := ProvisionMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid provision mode: %q (valid: auto, local, container)", s)
	}
	return mode, nil
}

// branchRegex validates branch candidate names. This is intentionally
// stricter than git's own ref rules: plain names like "main", "master",
// or "release/2026" are all the synchronizer ever probes for.
var branchRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ValidateBranchName checks if the given name is acceptable as a branch
// candidate. Valid names start with an alphanumeric character and contain
// only alphanumerics, dots, underscores, slashes, and hyphens.
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("branch name must not be empty")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid branch name %q: must not contain \"..\"", name)
	}
	if !branchRegex.MatchString(name) {
		return fmt.Errorf("invalid branch name %q: must start with an alphanumeric character and contain only alphanumerics, dots, underscores, slashes, and hyphens", name)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts
// and CI systems to programmatically determine which pipeline stage
// failed. Callers that only care about success can simply test for zero.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	// The empty-remote caveat case also exits with this code.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the configuration file is missing,
	// unreadable, or failed validation.
	ExitConfigError ExitCode = 2

	// ExitWorkspaceError indicates the workspace directory could not be
	// created or the git identity configuration could not be written.
	ExitWorkspaceError ExitCode = 3

	// ExitCloneFailed indicates the initial clone failed, which usually
	// signals an authentication or network problem.
	ExitCloneFailed ExitCode = 4

	// ExitNotARepository indicates the local path exists but is not a
	// git working copy. labsync refuses to touch it.
	ExitNotARepository ExitCode = 5

	// ExitSyncFailed indicates fetch, pull, or checkout failed for every
	// candidate branch.
	ExitSyncFailed ExitCode = 6

	// ExitProvisionFailed indicates the package installer script exited
	// non-zero.
	ExitProvisionFailed ExitCode = 7

	// ExitDockerUnavailable indicates the container provisioning mode was
	// requested but the Docker daemon is not reachable.
	ExitDockerUnavailable ExitCode = 8
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
