// Package cli — sync.go implements the "labsync sync" command.
//
// The sync command runs the first three pipeline stages: workspace
// preparation, git identity configuration, and repository
// synchronization. It stops short of package provisioning, which makes
// it the right command for quickly picking up remote changes on an
// already-provisioned machine.
//
// The synchronization stages are shared with the up command through
// runSyncPipeline, so both commands behave identically up to the point
// where up continues into provisioning.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/labsync/internal/config"
	"github.com/mmr-tortoise/labsync/internal/git"
	"github.com/mmr-tortoise/labsync/internal/model"
	"github.com/mmr-tortoise/labsync/internal/syncer"
	"github.com/mmr-tortoise/labsync/internal/workspace"
)

// NewSyncCommand creates the "sync" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Prepare the workspace and synchronize the analysis repository",
		Long: `Prepare the workspace directory, fill gaps in the global git identity,
and bring the local analysis repository up to date with its remote.

The synchronizer handles four starting states: a missing directory is
cloned, an existing working copy is pulled (local edits are stashed
first, never discarded), an empty working copy is populated from the
remote's default branch, and a directory that is not a git repository
fails the run without being touched.

Examples:
  labsync sync
  labsync sync --json
  labsync sync --config ./labsync.jsonc`,

		// No positional arguments are accepted for the sync command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.OutOrStdout())
		},
	}

	return cmd
}

// runSync is the main logic function for the sync command: resolve the
// configuration, run the synchronization pipeline, and print the report.
func runSync(out io.Writer) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	report, err := runSyncPipeline(cfg, out)
	if err != nil {
		return err
	}

	printSyncResult(out, report)
	return nil
}

// runSyncPipeline runs the synchronization stages in order: workspace
// preparation, identity configuration, then the repository
// synchronizer. On success the process working directory is the
// repository root, so a subsequent provisioning stage (or the user's
// own shell commands in the same process) operate on the synchronized
// tree.
//
// Shared by the sync and up commands.
func runSyncPipeline(cfg *config.Config, out io.Writer) (*model.SyncReport, error) {
	runner := git.NewRunner()

	// Stage 1: Ensure the workspace directory exists.
	created, err := workspace.Prepare(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}
	if created {
		VerboseLog("created workspace directory %s", cfg.Workspace.Root)
	} else {
		VerboseLog("workspace directory %s already exists", cfg.Workspace.Root)
	}

	// Stage 2: Fill gaps in the global git identity. Existing values
	// are never overwritten; a machine configured by hand keeps its
	// identity.
	settings, err := workspace.EnsureIdentity(
		runner,
		cfg.Identity.Name,
		cfg.Identity.Email,
		cfg.Identity.CredentialHelper,
	)
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		if s.Written {
			VerboseLog("wrote git config %s = %s", s.Key, s.Value)
		} else {
			VerboseLog("git config %s already set", s.Key)
		}
	}

	// Stage 3: Synchronize the repository. Progress lines go to the
	// user in text mode; in JSON mode stdout carries only the final
	// document, so progress is discarded.
	progress := out
	if IsJSONOutput() {
		progress = io.Discard
	}

	report, err := syncer.New(runner, progress).Sync(syncer.Spec{
		RemoteURL: cfg.Repo.URL,
		Path:      cfg.Repo.Dir,
		Branches:  cfg.Repo.Branches,
		Remote:    config.DefaultRemote,
	})
	if err != nil {
		return nil, err
	}

	// The pipeline's contract: after a successful synchronization the
	// process working directory is the repository root.
	if err := os.Chdir(report.Path); err != nil {
		return nil, model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to enter repository directory %s", report.Path),
			err,
		)
	}

	return report, nil
}

// printSyncResult outputs the synchronization report in text or JSON
// format, depending on the global --json flag.
func printSyncResult(out io.Writer, report *model.SyncReport) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	fmt.Fprintf(out, "Synchronized: %s\n", report.Summary())
	if report.Stashed {
		fmt.Fprintln(out, "Local edits were set aside — recover them with `git stash pop`.")
	}
}
