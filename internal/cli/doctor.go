// Package cli — doctor.go implements the "labsync doctor" command.
//
// The doctor command diagnoses the environment before a bootstrap run:
// configuration validity, git availability, identity, remote
// reachability, and the provisioning toolchain (Rscript and, when the
// configured mode could start a container, the Docker daemon). Checks
// are either required or advisory; the command exits non-zero only when
// a required check fails.
//
// Unlike the pipeline commands, doctor keeps going after a failure so
// one run surfaces every problem at once.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/labsync/internal/config"
	"github.com/mmr-tortoise/labsync/internal/docker"
	"github.com/mmr-tortoise/labsync/internal/git"
	"github.com/mmr-tortoise/labsync/internal/model"
	"github.com/mmr-tortoise/labsync/internal/ui"
)

// NewDoctorCommand creates the "doctor" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the environment for common bootstrap problems",
		Long: `Check everything a bootstrap run depends on and report each result.

Required checks (a failure exits non-zero): the configuration file
loads and validates, git is installed, the remote repository is
reachable with the current credentials, and the provisioning toolchain
for the configured mode is usable.

Advisory checks (reported, never fatal): the git identity — labsync
fills gaps during sync — the provisioning image being pulled already,
and leftover provisioning containers from interrupted runs.

Examples:
  labsync doctor
  labsync doctor --json`,

		// No positional arguments are accepted for the doctor command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout())
		},
	}

	return cmd
}

// doctorCheck is one diagnostic result. Required marks checks whose
// failure fails the command; the rest are notices.
type doctorCheck struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Detail   string `json:"detail,omitempty"`
}

// runDoctor is the main logic function for the doctor command. It runs
// every applicable check, prints the results, and fails only when a
// required check failed.
func runDoctor(ctx context.Context, out io.Writer) error {
	checks := collectDoctorChecks(ctx)
	printDoctorResult(out, checks)

	if failed := countRequiredFailures(checks); failed > 0 {
		return model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("%d required check(s) failed", failed),
		)
	}
	return nil
}

// collectDoctorChecks runs the diagnostics in order. Configuration
// comes first because the remote and provisioning checks depend on it;
// when it fails, the dependent checks are skipped rather than reported
// as spurious failures.
func collectDoctorChecks(ctx context.Context) []doctorCheck {
	var checks []doctorCheck
	runner := git.NewRunner()

	// Check 1: configuration. Everything else about the target
	// environment is read from it.
	cfg, err := resolveConfig()
	if err != nil {
		checks = append(checks, doctorCheck{
			Name: "configuration", Required: true, Detail: err.Error(),
		})
	} else {
		checks = append(checks, doctorCheck{
			Name: "configuration", OK: true, Required: true, Detail: "loaded and validated",
		})
	}

	// Check 2: the git binary. Every synchronization operation shells
	// out to it.
	gitOK := false
	if version, verr := runner.Version(); verr != nil {
		checks = append(checks, doctorCheck{
			Name: "git", Required: true, Detail: "git not found on PATH — install it from https://git-scm.com/",
		})
	} else {
		gitOK = true
		checks = append(checks, doctorCheck{
			Name: "git", OK: true, Required: true, Detail: version,
		})
	}

	// Check 3: global identity. Advisory — sync fills the gaps — but
	// worth surfacing, since commits made before the first sync would
	// otherwise fail.
	if gitOK {
		checks = append(checks, identityCheck(runner))
	}

	// The remaining checks need the configuration.
	if cfg == nil {
		return checks
	}

	// Check 4: remote reachability with the user's current credentials.
	if gitOK {
		if lsErr := runner.LsRemote(cfg.Repo.URL); lsErr != nil {
			checks = append(checks, doctorCheck{
				Name: "remote", Required: true,
				Detail: fmt.Sprintf("%s is not reachable — verify the URL and your credentials", cfg.Repo.URL),
			})
		} else {
			checks = append(checks, doctorCheck{
				Name: "remote", OK: true, Required: true,
				Detail: fmt.Sprintf("%s reachable", cfg.Repo.URL),
			})
		}
	}

	// Check 5: the provisioning toolchain for the configured mode.
	checks = append(checks, provisioningChecks(ctx, cfg)...)

	return checks
}

// identityCheck reports whether the global git identity is complete.
func identityCheck(runner *git.Runner) doctorCheck {
	var missing []string
	for _, key := range []string{"user.name", "user.email"} {
		value, err := runner.GlobalConfigGet(key)
		if err != nil || value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return doctorCheck{
			Name:   "identity",
			Detail: fmt.Sprintf("%s unset — labsync will fill them on the next sync", strings.Join(missing, ", ")),
		}
	}
	return doctorCheck{Name: "identity", OK: true, Detail: "user.name and user.email set"}
}

// provisioningChecks covers the provisioning tools. Which
// checks apply, and which are required, follows the configured mode:
// local needs Rscript, container needs the Docker daemon, and auto
// needs at least one of the two.
func provisioningChecks(ctx context.Context, cfg *config.Config) []doctorCheck {
	var checks []doctorCheck
	mode := model.ProvisionMode(cfg.Provision.Mode)

	// Rscript probe (skipped in container mode, where only the image's
	// own interpreter matters).
	rscriptPath := ""
	if mode != model.ModeContainer {
		path, err := exec.LookPath("Rscript")
		if err == nil {
			rscriptPath = path
			checks = append(checks, doctorCheck{
				Name: "Rscript", OK: true, Required: mode == model.ModeLocal, Detail: path,
			})
		} else {
			detail := "not on PATH"
			if mode == model.ModeAuto {
				detail = "not on PATH — provisioning will fall back to the container mode"
			}
			checks = append(checks, doctorCheck{
				Name: "Rscript", Required: mode == model.ModeLocal, Detail: detail,
			})
		}
	}

	// Docker probe, only when the next provisioning run could start a
	// container.
	if !dockerRelevant(cfg.Provision.Mode, rscriptPath) {
		return checks
	}
	dockerRequired := mode == model.ModeContainer || (mode == model.ModeAuto && rscriptPath == "")

	client, err := docker.NewClient()
	if err != nil {
		checks = append(checks, doctorCheck{
			Name: "docker", Required: dockerRequired, Detail: err.Error(),
		})
		return checks
	}
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx); err != nil {
		checks = append(checks, doctorCheck{
			Name: "docker", Required: dockerRequired, Detail: "daemon is not responding — is Docker running?",
		})
		return checks
	}
	checks = append(checks, doctorCheck{
		Name: "docker", OK: true, Required: dockerRequired, Detail: "daemon reachable",
	})

	// With a reachable daemon, two advisory look-aheads: is the image
	// already pulled, and did an interrupted run leave containers
	// behind?
	if present, err := docker.HasImage(ctx, client, cfg.Provision.Image); err == nil {
		if present {
			checks = append(checks, doctorCheck{
				Name: "image", OK: true, Detail: fmt.Sprintf("%s present locally", cfg.Provision.Image),
			})
		} else {
			checks = append(checks, doctorCheck{
				Name: "image", Detail: fmt.Sprintf("%s not pulled yet — the first container run will download it", cfg.Provision.Image),
			})
		}
	}

	if leftovers, err := docker.ListProvisionContainers(ctx, client); err == nil {
		if len(leftovers) == 0 {
			checks = append(checks, doctorCheck{
				Name: "leftovers", OK: true, Detail: "no leftover provisioning containers",
			})
		} else {
			checks = append(checks, doctorCheck{
				Name: "leftovers", Detail: formatLeftovers(leftovers),
			})
		}
	}

	return checks
}

// countRequiredFailures counts the checks that both failed and are
// required — the condition under which doctor exits non-zero.
func countRequiredFailures(checks []doctorCheck) int {
	failed := 0
	for _, c := range checks {
		if c.Required && !c.OK {
			failed++
		}
	}
	return failed
}

// printDoctorResult outputs the check results in text or JSON format,
// depending on the global --json flag.
func printDoctorResult(out io.Writer, checks []doctorCheck) {
	if IsJSONOutput() {
		result := struct {
			Checks []doctorCheck `json:"checks"`
			OK     bool          `json:"ok"`
		}{Checks: checks, OK: countRequiredFailures(checks) == 0}

		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	for _, c := range checks {
		fmt.Fprintf(out, "  %s %-14s %s\n", ui.Check(c.OK), c.Name, ui.Dim(c.Detail))
	}

	fmt.Fprintln(out)
	if failed := countRequiredFailures(checks); failed > 0 {
		fmt.Fprintf(out, "%s\n", ui.Fail(fmt.Sprintf("%d required check(s) failed. See above for details.", failed)))
	} else {
		fmt.Fprintf(out, "%s\n", ui.OK("All required checks passed."))
	}
}
