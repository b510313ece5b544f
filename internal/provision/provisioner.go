// provisioner.go implements execution of the embedded installer script,
// locally via Rscript or inside a rocker container.
package provision

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mmr-tortoise/labsync/internal/docker"
	"github.com/mmr-tortoise/labsync/internal/model"
)

//go:embed install_packages.R
var installScript string

const (
	// RLibraryVolume is the named Docker volume holding the R site
	// library in container mode. Without it every provisioning run
	// would reinstall all packages from scratch.
	RLibraryVolume = "labsync-rlib"

	// CmdStanVolume is the named Docker volume holding the CmdStan
	// installation (~/.cmdstan) in container mode.
	CmdStanVolume = "labsync-cmdstan"

	// containerWorkdir is where the repository is mounted inside the
	// provisioning container.
	containerWorkdir = "/workspace"

	// containerScript is where the installer script is mounted inside
	// the provisioning container.
	containerScript = "/tmp/install_packages.R"
)

// Options carries the inputs of one provisioning run.
type Options struct {
	// RepoDir is the synchronized repository directory. The installer
	// runs with it as the working directory, so R code that sources
	// repository files on load behaves the same as an interactive
	// session. Required.
	RepoDir string

	// Mode selects local, container, or auto execution. Empty means
	// auto.
	Mode model.ProvisionMode

	// Image is the container image used by the container mode.
	Image string

	// Cores is the CmdStan build parallelism used when the manifest
	// does not set its own.
	Cores int

	// Manifest is the resolved package manifest. Nil means the built-in
	// default list.
	Manifest *Manifest
}

// Provisioner executes the embedded installer script. It holds only the
// output destinations; every run receives its inputs through Options.
type Provisioner struct {
	// out receives the installer's own output stream. Package
	// installation is slow and chatty, and hiding that output would
	// leave the user staring at a silent terminal for minutes.
	out io.Writer

	// progress receives labsync's one-line notes about what is being
	// invoked and how.
	progress io.Writer
}

// New creates a Provisioner. Either writer may be nil to discard that
// stream.
func New(out, progress io.Writer) *Provisioner {
	if out == nil {
		out = io.Discard
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Provisioner{out: out, progress: progress}
}

// Run executes one provisioning run and blocks until the installer
// finishes. The contract with the installer is deliberately thin: zero
// exit status is success, anything else is a terminal
// ExitProvisionFailed. No output parsing, no retries.
func (p *Provisioner) Run(ctx context.Context, opts Options) error {
	if opts.RepoDir == "" {
		return model.NewCLIError(
			model.ExitGeneralError,
			"provisioning requires a repository directory",
		)
	}

	manifest := opts.Manifest
	if manifest == nil {
		manifest = DefaultManifest()
	}

	mode := opts.Mode
	if mode == "" {
		mode = model.ModeAuto
	}

	// Auto mode prefers the local interpreter: no image pull, no
	// daemon, and packages land in the user's own library.
	if mode == model.ModeAuto {
		if _, err := exec.LookPath("Rscript"); err == nil {
			mode = model.ModeLocal
		} else {
			fmt.Fprintf(p.progress, "No Rscript on PATH — falling back to container mode.\n")
			mode = model.ModeContainer
		}
	}

	switch mode {
	case model.ModeLocal:
		return p.runLocal(ctx, opts, manifest)
	case model.ModeContainer:
		return p.runContainer(ctx, opts, manifest)
	default:
		return model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("unknown provisioning mode %q", mode),
		)
	}
}

// runLocal executes the installer with the Rscript binary on PATH, in
// the repository directory.
func (p *Provisioner) runLocal(ctx context.Context, opts Options, manifest *Manifest) error {
	if _, err := exec.LookPath("Rscript"); err != nil {
		return model.WrapCLIError(
			model.ExitProvisionFailed,
			"Rscript not found on PATH — install R, or set provision.mode to container",
			err,
		)
	}

	scriptPath, cleanup, err := writeScript()
	if err != nil {
		return err
	}
	defer cleanup()

	args := append([]string{scriptPath}, scriptArgs(manifest, opts.Cores)...)

	fmt.Fprintf(p.progress, "Installing %d analysis packages with local Rscript ...\n", len(manifest.Packages))

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, "Rscript", args...)
	cmd.Dir = opts.RepoDir
	cmd.Stdout = p.out
	cmd.Stderr = p.out
	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(
			model.ExitProvisionFailed,
			"package provisioning failed",
			err,
		)
	}
	return nil
}

// runContainer executes the installer inside the configured image with
// the repository bind-mounted. The container is started through the
// docker CLI so its output streams exactly as in local mode; the SDK
// client is used up front for a daemon availability check, which gives
// a much clearer diagnostic than a failed docker-run dump.
func (p *Provisioner) runContainer(ctx context.Context, opts Options, manifest *Manifest) error {
	if opts.Image == "" {
		return model.NewCLIError(
			model.ExitConfigError,
			"container mode requires a provisioning image (provision.image)",
		)
	}
	if _, err := exec.LookPath("docker"); err != nil {
		return model.WrapCLIError(
			model.ExitDockerUnavailable,
			"docker CLI not found on PATH",
			err,
		)
	}

	client, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx); err != nil {
		return err
	}

	scriptPath, cleanup, err := writeScript()
	if err != nil {
		return err
	}
	defer cleanup()

	absRepo, err := filepath.Abs(opts.RepoDir)
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to resolve repository path %s", opts.RepoDir),
			err,
		)
	}

	// Named volumes keep the R library and the CmdStan toolchain across
	// runs; the container itself is disposable.
	runArgs := []string{"run", "--rm"}
	runArgs = append(runArgs, docker.LabelArgs(docker.BuildLabels(absRepo, time.Now()))...)
	runArgs = append(runArgs,
		"-v", absRepo+":"+containerWorkdir,
		"-v", scriptPath+":"+containerScript+":ro",
		"-v", RLibraryVolume+":/usr/local/lib/R/site-library",
		"-v", CmdStanVolume+":/root/.cmdstan",
		"-w", containerWorkdir,
		opts.Image,
		"Rscript", containerScript,
	)
	runArgs = append(runArgs, scriptArgs(manifest, opts.Cores)...)

	fmt.Fprintf(p.progress, "Installing %d analysis packages in %s ...\n", len(manifest.Packages), opts.Image)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, "docker", runArgs...)
	cmd.Stdout = p.out
	cmd.Stderr = p.out
	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(
			model.ExitProvisionFailed,
			"package provisioning failed in container",
			err,
		)
	}
	return nil
}

// scriptArgs renders the installer's command line from the manifest:
// cores, extra repositories, the backend toggle, then the package list.
func scriptArgs(manifest *Manifest, defaultCores int) []string {
	cores := manifest.Backend.Cores
	if cores == 0 {
		cores = defaultCores
	}

	var args []string
	if cores > 0 {
		args = append(args, "--cores", strconv.Itoa(cores))
	}
	for _, repo := range manifest.Repos {
		args = append(args, "--repo", repo)
	}
	if !manifest.Backend.Install {
		args = append(args, "--skip-backend")
	}
	return append(args, manifest.Packages...)
}

// writeScript materializes the embedded installer script into a
// temporary file so Rscript (or the container bind mount) can read it.
// The returned cleanup removes the file.
func writeScript() (string, func(), error) {
	f, err := os.CreateTemp("", "labsync-install-*.R")
	if err != nil {
		return "", nil, model.WrapCLIError(
			model.ExitProvisionFailed,
			"failed to materialize installer script",
			err,
		)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.WriteString(installScript); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, model.WrapCLIError(
			model.ExitProvisionFailed,
			"failed to write installer script",
			err,
		)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, model.WrapCLIError(
			model.ExitProvisionFailed,
			"failed to write installer script",
			err,
		)
	}

	return f.Name(), cleanup, nil
}
