// manifest.go implements the optional packages.yaml manifest that
// overrides the built-in package list.
package provision

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// ManifestName is the canonical manifest file name inside a repository.
const ManifestName = "packages.yaml"

// Manifest is the packages.yaml document. It describes what the
// installer script should ensure is present; the script itself decides
// what is already there.
type Manifest struct {
	// Packages are the R packages to ensure installed, in order.
	// cmdstanr is resolved from the stan-dev repository, everything
	// else from CRAN (plus Repos).
	Packages []string `yaml:"packages"`

	// Repos are additional package repository URLs consulted besides
	// CRAN and stan-dev.
	Repos []string `yaml:"repos,omitempty"`

	// Backend configures the CmdStan native backend installation.
	Backend BackendConfig `yaml:"backend"`
}

// BackendConfig controls the native backend step of the installer.
type BackendConfig struct {
	// Install toggles the CmdStan installation after the package
	// installs. Off means the installer stops at the R packages.
	Install bool `yaml:"install"`

	// Cores is the CmdStan build parallelism. Zero falls back to the
	// configured default at invocation time.
	Cores int `yaml:"cores,omitempty"`
}

// DefaultManifest returns the built-in package list: the data-analysis
// chain the bootstrap has always installed, ending in the
// probabilistic-programming toolchain and its native backend.
func DefaultManifest() *Manifest {
	return &Manifest{
		Packages: []string{
			"tidyverse",
			"knitr",
			"rmarkdown",
			"posterior",
			"bayesplot",
			"loo",
			"brms",
			"cmdstanr",
		},
		Backend: BackendConfig{Install: true},
	}
}

// LoadManifest reads and validates a packages.yaml file. Unknown keys
// are rejected for the same reason the config loader rejects them: the
// file is fully owned by labsync, so an unrecognized key is a typo.
//
// Returns a model.CLIError with ExitConfigError on read, parse, or
// validation failure.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("manifest not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to read manifest %s", path),
			err,
		)
	}
	defer func() { _ = f.Close() }()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil,
			model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("failed to parse manifest %s", path),
				err,
			)
	}

	if err := m.validate(); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("invalid manifest %s", path),
			err,
		)
	}

	return &m, nil
}

// validate checks the manifest for obvious mistakes: the installer
// needs at least one package, and names must be shell-safe since they
// travel to Rscript on the command line.
func (m *Manifest) validate() error {
	if len(m.Packages) == 0 {
		return fmt.Errorf("packages list is empty")
	}
	for i, pkg := range m.Packages {
		if strings.TrimSpace(pkg) == "" {
			return fmt.Errorf("packages[%d] is blank", i)
		}
		if strings.ContainsAny(pkg, " \t\n") {
			return fmt.Errorf("packages[%d] %q contains whitespace", i, pkg)
		}
	}
	for i, repo := range m.Repos {
		if strings.TrimSpace(repo) == "" {
			return fmt.Errorf("repos[%d] is blank", i)
		}
	}
	return nil
}

// manifestHeader is prepended to generated manifests so the file is
// self-describing when opened in an editor.
const manifestHeader = `# labsync provisioning manifest.
#
# Packages are ensured in order: already-installed ones are skipped,
# cmdstanr comes from the stan-dev repository, everything else from
# CRAN (plus any extra repos listed below). backend.install controls
# whether the CmdStan toolchain is built after the R packages.

`

// WriteDefaultManifest writes the built-in manifest to the given path
// for the user to edit. An existing file is never overwritten.
func WriteDefaultManifest(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return model.NewCLIError(
				model.ExitConfigError,
				fmt.Sprintf("%s already exists — edit it directly or remove it first", path),
			)
		}
		return model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to create %s", path),
			err,
		)
	}
	defer func() { _ = f.Close() }()

	data, err := yaml.Marshal(DefaultManifest())
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			"failed to render default manifest",
			err,
		)
	}

	if _, err := f.WriteString(manifestHeader); err != nil {
		return model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to write %s", path),
			err,
		)
	}
	if _, err := f.Write(data); err != nil {
		return model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to write %s", path),
			err,
		)
	}
	return nil
}
