// Package cli — provision.go implements the "labsync provision" command.
//
// The provision command runs the package-provisioning stage on its own:
// it drives the embedded R installer script that ensures the
// data-analysis package chain (ending in brms/cmdstanr and the CmdStan
// native backend) is present. It requires an already-synchronized
// repository — `labsync up` runs synchronization and provisioning
// together.
//
// The contract with the installer is deliberately thin: invoke it once,
// treat any non-zero exit status as a terminal failure. Its internal
// check-then-install logic is owned by the R ecosystem, not
// reimplemented here.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/labsync/internal/config"
	"github.com/mmr-tortoise/labsync/internal/git"
	"github.com/mmr-tortoise/labsync/internal/model"
	"github.com/mmr-tortoise/labsync/internal/provision"
)

// NewProvisionCommand creates the "provision" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewProvisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Install the analysis packages and their CmdStan backend",
		Long: `Run the embedded R installer against the synchronized repository.

The installer ensures the configured package list is present (already
installed packages are skipped), resolves cmdstanr from the stan-dev
repository, and builds the CmdStan native backend when none is found.
Depending on provision.mode it runs with a local Rscript, inside a
Docker container with the repository bind-mounted, or picks
automatically.

The repository must be synchronized first (labsync sync or labsync up).

Examples:
  labsync provision
  labsync provision --verbose`,

		// No positional arguments are accepted for the provision command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), cmd.OutOrStdout())
		},
	}

	return cmd
}

// runProvision is the main logic function for the provision command.
// It verifies a synchronized repository exists, then runs the
// provisioning stage against it.
func runProvision(ctx context.Context, out io.Writer) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	// Step 1: The provisioner needs a repository to run in. A missing
	// or foreign directory means synchronization has not happened yet
	// (or the path is occupied), so the user is pointed at sync instead
	// of getting an R error about a missing working directory.
	state := git.NewRunner().Classify(cfg.Repo.Dir)
	switch state {
	case model.RepoAbsent:
		return model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("repository %s does not exist yet — run `labsync sync` first", cfg.Repo.Dir),
		)
	case model.RepoInvalid:
		return model.NewCLIError(
			model.ExitNotARepository,
			fmt.Sprintf("%s exists but is not a git repository — refusing to touch it; move or remove the directory and rerun", cfg.Repo.Dir),
		)
	}
	VerboseLog("repository state: %s", state)

	// Step 2: Run the provisioning stage shared with the up command.
	mode, err := runProvisionStage(ctx, cfg, out)
	if err != nil {
		return err
	}

	printProvisionResult(out, mode)
	return nil
}

// runProvisionStage resolves the package manifest and executes the
// installer, returning the effective execution mode. Shared by the
// provision and up commands; both have already verified the repository
// directory exists.
func runProvisionStage(ctx context.Context, cfg *config.Config, out io.Writer) (model.ProvisionMode, error) {
	manifest, err := resolveManifest(cfg)
	if err != nil {
		return "", err
	}

	// Mode was validated during configuration loading, so a parse
	// failure here means a programming error rather than user input.
	mode, err := model.ParseProvisionMode(cfg.Provision.Mode)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError, "invalid provisioning mode", err)
	}

	// The installer's own output is slow and chatty; in JSON mode it
	// moves to stderr so stdout carries only the final document.
	installerOut := out
	progress := out
	if IsJSONOutput() {
		installerOut = os.Stderr
		progress = io.Discard
	}

	err = provision.New(installerOut, progress).Run(ctx, provision.Options{
		RepoDir:  cfg.Repo.Dir,
		Mode:     mode,
		Image:    cfg.Provision.Image,
		Cores:    cfg.Provision.Cores,
		Manifest: manifest,
	})
	if err != nil {
		return mode, err
	}
	return mode, nil
}

// resolveManifest locates the package manifest for a provisioning run.
//
// Resolution order:
//  1. provision.manifest from the configuration, when set. Relative
//     paths are resolved against the repository directory. A configured
//     manifest that does not exist is an error — the user asked for it.
//  2. packages.yaml at the repository root, when present. This lets the
//     analysis repository itself declare what it needs.
//  3. Nil, meaning the built-in default package list.
func resolveManifest(cfg *config.Config) (*provision.Manifest, error) {
	if cfg.Provision.Manifest != "" {
		path := cfg.Provision.Manifest
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Repo.Dir, path)
		}
		VerboseLog("using configured manifest %s", path)
		return provision.LoadManifest(path)
	}

	repoManifest := filepath.Join(cfg.Repo.Dir, provision.ManifestName)
	if _, err := os.Stat(repoManifest); err == nil {
		VerboseLog("using repository manifest %s", repoManifest)
		return provision.LoadManifest(repoManifest)
	}

	VerboseLog("no manifest found, using the built-in package list")
	return nil, nil
}

// printProvisionResult outputs the provision command result in text or
// JSON format, depending on the global --json flag.
func printProvisionResult(out io.Writer, mode model.ProvisionMode) {
	if IsJSONOutput() {
		result := struct {
			Provisioned bool   `json:"provisioned"`
			Mode        string `json:"mode"`
		}{Provisioned: true, Mode: mode.String()}

		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	fmt.Fprintf(out, "Provisioning complete (%s mode).\n", mode)
}
