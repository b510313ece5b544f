// Package cli — status.go implements the "labsync status" command.
//
// The status command inspects the current bootstrap state without
// changing anything: workspace presence, repository state (the same
// four-way classification the synchronizer branches on, plus branch,
// head, dirty flag, and stash count), and provisioning tool
// availability. Everything shown is re-derived from the filesystem, git,
// and Docker on each run — labsync keeps no state files of its own.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/labsync/internal/config"
	"github.com/mmr-tortoise/labsync/internal/docker"
	"github.com/mmr-tortoise/labsync/internal/git"
	"github.com/mmr-tortoise/labsync/internal/model"
	"github.com/mmr-tortoise/labsync/internal/provision"
	"github.com/mmr-tortoise/labsync/internal/ui"
)

// NewStatusCommand creates the "status" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current bootstrap state",
		Long: `Show the workspace, repository, and provisioning state for the
configured environment.

The repository section reports the same classification the synchronizer
acts on (absent, populated, empty, invalid) along with the checked-out
branch, head commit, uncommitted modifications, and the number of stash
entries holding set-aside edits.

Examples:
  labsync status
  labsync status --json`,

		// No positional arguments are accepted for the status command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}

	return cmd
}

// statusReport is the full inspection result, rendered as sections in
// text mode and marshaled directly in JSON mode.
type statusReport struct {
	Workspace workspaceStatus `json:"workspace"`
	Repo      repoStatus      `json:"repo"`
	Provision provisionStatus `json:"provision"`
}

// workspaceStatus reports the Environment Preparer's target.
type workspaceStatus struct {
	Root    string `json:"root"`
	Present bool   `json:"present"`
}

// repoStatus reports the synchronizer's view of the local repository.
// Branch and Head are only set for a populated working copy.
type repoStatus struct {
	URL     string          `json:"url"`
	Path    string          `json:"path"`
	State   model.RepoState `json:"state"`
	Branch  string          `json:"branch,omitempty"`
	Head    string          `json:"head,omitempty"`
	Dirty   bool            `json:"dirty"`
	Stashes int             `json:"stashes"`
}

// provisionStatus reports the provisioning tooling. Docker is
// nil when the configured mode cannot involve a container, so local-only
// setups never wait on a daemon probe.
type provisionStatus struct {
	Mode     string        `json:"mode"`
	Manifest string        `json:"manifest"`
	Rscript  string        `json:"rscript,omitempty"`
	Docker   *dockerStatus `json:"docker,omitempty"`
}

// dockerStatus reports daemon reachability and any labsync-labeled
// containers left over from interrupted provisioning runs.
type dockerStatus struct {
	Reachable bool                        `json:"reachable"`
	Leftovers []docker.ProvisionContainer `json:"leftoverContainers"`
}

// runStatus is the main logic function for the status command. It
// gathers the report and renders it.
func runStatus(ctx context.Context, out io.Writer) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	report := collectStatus(ctx, cfg)
	printStatusResult(out, report)
	return nil
}

// collectStatus builds the status report from the filesystem, the git
// working copy, and (when relevant) the Docker daemon. Probes that fail
// degrade to absent fields rather than failing the command: status is a
// read-only diagnostic and should render whatever it can see.
func collectStatus(ctx context.Context, cfg *config.Config) *statusReport {
	runner := git.NewRunner()

	report := &statusReport{
		Workspace: workspaceStatus{Root: cfg.Workspace.Root},
		Repo: repoStatus{
			URL:  cfg.Repo.URL,
			Path: cfg.Repo.Dir,
		},
		Provision: provisionStatus{
			Mode:     cfg.Provision.Mode,
			Manifest: describeManifestSource(cfg),
		},
	}

	// Workspace: a bare existence check, same as the Preparer's.
	if info, err := os.Stat(cfg.Workspace.Root); err == nil && info.IsDir() {
		report.Workspace.Present = true
	}

	// Repository: classify, then dig only as deep as the state allows.
	// Branch and head need a commit; dirty and stash checks need a
	// valid working copy.
	report.Repo.State = runner.Classify(cfg.Repo.Dir)
	if report.Repo.State == model.RepoPopulated || report.Repo.State == model.RepoEmpty {
		if dirty, err := runner.IsDirty(cfg.Repo.Dir); err == nil {
			report.Repo.Dirty = dirty
		}
		if count, err := runner.StashCount(cfg.Repo.Dir); err == nil {
			report.Repo.Stashes = count
		}
	}
	if report.Repo.State == model.RepoPopulated {
		if branch, err := runner.CurrentBranch(cfg.Repo.Dir); err == nil {
			report.Repo.Branch = branch
		}
		if head, err := runner.Head(cfg.Repo.Dir); err == nil {
			report.Repo.Head = head
		}
	}

	// Provisioning tools. The Rscript probe is a PATH lookup; the
	// Docker probe only runs when the configured mode could start a
	// container, so a local-only setup never waits on the daemon.
	if path, err := exec.LookPath("Rscript"); err == nil {
		report.Provision.Rscript = path
	}
	if dockerRelevant(cfg.Provision.Mode, report.Provision.Rscript) {
		report.Provision.Docker = probeDocker(ctx)
	}

	return report
}

// describeManifestSource names where the package list would come from
// on the next provisioning run, without loading or validating it.
func describeManifestSource(cfg *config.Config) string {
	if cfg.Provision.Manifest != "" {
		path := cfg.Provision.Manifest
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Repo.Dir, path)
		}
		return path
	}

	repoManifest := filepath.Join(cfg.Repo.Dir, provision.ManifestName)
	if _, err := os.Stat(repoManifest); err == nil {
		return repoManifest
	}

	return "built-in package list"
}

// dockerRelevant reports whether the next provisioning run could
// involve Docker: always in container mode, and in auto mode whenever
// no local Rscript would win the fallback.
func dockerRelevant(mode, rscriptPath string) bool {
	switch model.ProvisionMode(mode) {
	case model.ModeContainer:
		return true
	case model.ModeAuto:
		return rscriptPath == ""
	default:
		return false
	}
}

// probeDocker checks daemon reachability and, when reachable, lists
// leftover provisioning containers. Never returns an error — an
// unreachable daemon is itself a reportable state.
func probeDocker(ctx context.Context) *dockerStatus {
	status := &dockerStatus{Leftovers: []docker.ProvisionContainer{}}

	client, err := docker.NewClient()
	if err != nil {
		return status
	}
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx); err != nil {
		return status
	}
	status.Reachable = true

	if leftovers, err := docker.ListProvisionContainers(ctx, client); err == nil {
		status.Leftovers = leftovers
	}
	return status
}

// printStatusResult outputs the status report in text or JSON format,
// depending on the global --json flag.
func printStatusResult(out io.Writer, report *statusReport) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	fmt.Fprintln(out, ui.Header("Workspace"))
	statusRow(out, "root", report.Workspace.Root)
	statusRow(out, "present", yesNo(report.Workspace.Present))

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Header("Repository"))
	statusRow(out, "url", report.Repo.URL)
	statusRow(out, "path", report.Repo.Path)
	statusRow(out, "state", ui.StateBadge(report.Repo.State))
	if report.Repo.Branch != "" {
		statusRow(out, "branch", report.Repo.Branch)
	}
	if report.Repo.Head != "" {
		statusRow(out, "head", report.Repo.Head)
	}
	if report.Repo.State == model.RepoPopulated || report.Repo.State == model.RepoEmpty {
		statusRow(out, "dirty", yesNo(report.Repo.Dirty))
		statusRow(out, "stashes", formatStashes(report.Repo.Stashes))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Header("Provisioning"))
	statusRow(out, "mode", report.Provision.Mode)
	statusRow(out, "manifest", report.Provision.Manifest)
	if report.Provision.Rscript != "" {
		statusRow(out, "Rscript", report.Provision.Rscript)
	} else {
		statusRow(out, "Rscript", ui.Dim("not on PATH"))
	}
	if report.Provision.Docker != nil {
		if report.Provision.Docker.Reachable {
			statusRow(out, "docker", ui.OK("reachable"))
			statusRow(out, "leftovers", formatLeftovers(report.Provision.Docker.Leftovers))
		} else {
			statusRow(out, "docker", ui.Fail("unreachable"))
		}
	}
}

// statusRow prints one aligned label/value line within a section.
func statusRow(out io.Writer, label, value string) {
	fmt.Fprintf(out, "  %-10s %s\n", label, value)
}

// yesNo renders a boolean the way a human reads a checklist.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatStashes renders the stash count with a recovery hint when
// set-aside edits exist.
func formatStashes(count int) string {
	if count == 0 {
		return "0"
	}
	return ui.Warn(fmt.Sprintf("%d (recover with `git stash pop`)", count))
}

// formatLeftovers renders leftover provisioning containers as a count
// plus names. A container normally removes itself, so anything listed
// here survived an interrupted run.
func formatLeftovers(leftovers []docker.ProvisionContainer) string {
	if len(leftovers) == 0 {
		return "none"
	}

	names := make([]string, 0, len(leftovers))
	for _, c := range leftovers {
		names = append(names, c.Name)
	}
	return ui.Warn(fmt.Sprintf("%d container(s): %s", len(leftovers), joinNames(names)))
}

// joinNames joins container names with commas, capping the list so one
// runaway environment cannot flood the table.
func joinNames(names []string) string {
	const maxShown = 3
	if len(names) <= maxShown {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(names[:maxShown], ", "), len(names)-maxShown)
}
