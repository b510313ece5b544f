// config.go implements loading and defaulting of the labsync.jsonc file.
//
// The loader is strict: after JSONC comment stripping, unknown keys are
// rejected so a typo like "brnaches" fails fast instead of silently
// falling back to defaults.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// FileName is the canonical configuration file name.
const FileName = "labsync.jsonc"

// Default values filled in by ApplyDefaults for fields the user left out.
const (
	// DefaultCredentialHelper is written into the global git config when
	// no credential helper is configured yet. "store" matches the plain
	// on-disk helper the bootstrap flow has always used.
	DefaultCredentialHelper = "store"

	// DefaultImage is the container image used by the container
	// provisioning mode. The rocker verse image ships R with the
	// tidyverse toolchain preinstalled, which keeps provisioning runs
	// short.
	DefaultImage = "rocker/verse:4.4"

	// DefaultCores is the build parallelism handed to the CmdStan
	// backend installation.
	DefaultCores = 2

	// DefaultRemote is the git remote name all synchronization
	// operations run against.
	DefaultRemote = "origin"
)

// DefaultBranches is the ordered candidate list used when repo.branches
// is not set: the primary name first, then the fallback.
var DefaultBranches = []string{"main", "master"}

// Config is the root configuration structure. All commands receive
// their inputs through this struct rather than through globals, so
// tests can construct arbitrary configurations directly.
type Config struct {
	// Workspace configures the local root directory under which the
	// synchronized repository lives.
	Workspace WorkspaceConfig `json:"workspace"`

	// Repo identifies the remote repository and the local directory
	// that mirrors it.
	Repo RepoConfig `json:"repo"`

	// Identity holds the git identity defaults written when the user's
	// global configuration has none (read-if-present, write-if-absent).
	Identity IdentityConfig `json:"identity"`

	// Provision configures the package installer invocation.
	Provision ProvisionConfig `json:"provision"`
}

// WorkspaceConfig configures the Environment Preparer.
type WorkspaceConfig struct {
	// Root is the workspace directory. Created (with parents) when
	// missing; an existing directory is left untouched. A leading "~"
	// is expanded to the user's home directory.
	Root string `json:"root"`
}

// RepoConfig identifies the repository to synchronize.
type RepoConfig struct {
	// URL is the remote repository URL. Required.
	URL string `json:"url"`

	// Dir is the local repository directory. When empty it defaults to
	// the workspace root joined with the repository name derived from
	// the URL.
	Dir string `json:"dir,omitempty"`

	// Branches is the ordered list of candidate branch names probed
	// during synchronization; the first success wins. Defaults to
	// ["main", "master"].
	Branches []string `json:"branches,omitempty"`
}

// IdentityConfig holds the git identity defaults. Empty fields are
// simply never written; existing global values are never overwritten.
type IdentityConfig struct {
	// Name is the default value for user.name.
	Name string `json:"name,omitempty"`

	// Email is the default value for user.email.
	Email string `json:"email,omitempty"`

	// CredentialHelper is the default value for credential.helper.
	CredentialHelper string `json:"credentialHelper,omitempty"`
}

// ProvisionConfig configures the package installer invocation.
type ProvisionConfig struct {
	// Mode selects how the installer runs: "auto", "local", or
	// "container". Stored as a plain string here and parsed into
	// model.ProvisionMode during validation.
	Mode string `json:"mode,omitempty"`

	// Image is the container image used by the container mode.
	Image string `json:"image,omitempty"`

	// Manifest is an optional path to a packages.yaml file overriding
	// the built-in package list. Relative paths are resolved against
	// the repository directory.
	Manifest string `json:"manifest,omitempty"`

	// Cores is the build parallelism for the CmdStan backend install.
	Cores int `json:"cores,omitempty"`
}

// Load reads a labsync.jsonc file, strips JSONC comments, and parses it
// into a Config struct.
//
// Parsing is strict: unknown keys anywhere in the document are an
// error. The configuration file is fully owned by labsync, so an
// unrecognized key always means a typo rather than a foreign field.
//
// Returns a model.CLIError with ExitConfigError if the file does not
// exist or cannot be parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("configuration file not found: %s (run `labsync init` to create one)", path),
				err,
			)
		}
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to read configuration file %s", path),
			err,
		)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing with the standard library.
	cleanJSON := jsonc.ToJSON(data)

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(cleanJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to parse %s", path),
			err,
		)
	}

	return &cfg, nil
}

// Find searches for labsync.jsonc in the standard locations.
//
// The search order is:
//  1. <startDir>/labsync.jsonc (project-local, most common)
//  2. <startDir>/.labsync.jsonc (hidden alternative)
//  3. $HOME/.config/labsync/labsync.jsonc (per-user fallback)
//
// Returns the path to the first found file, or a model.CLIError with
// ExitConfigError if none of the locations contain one.
func Find(startDir string) (string, error) {
	candidates := []string{
		filepath.Join(startDir, FileName),
		filepath.Join(startDir, "."+FileName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "labsync", FileName))
	}

	for _, path := range candidates {
		// os.Stat checks existence without reading contents; Load does
		// the actual read for whichever candidate wins.
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", model.NewCLIError(
		model.ExitConfigError,
		fmt.Sprintf("no %s found in %s or ~/.config/labsync (run `labsync init` to create one)", FileName, startDir),
	)
}

// ApplyDefaults fills unset fields with their default values and
// expands "~" in the workspace root and repository directory. It must
// run before Validate so validation sees the effective configuration.
func (c *Config) ApplyDefaults() {
	c.Workspace.Root = expandHome(c.Workspace.Root)

	if len(c.Repo.Branches) == 0 {
		c.Repo.Branches = append([]string(nil), DefaultBranches...)
	}
	if c.Repo.Dir == "" && c.Repo.URL != "" && c.Workspace.Root != "" {
		c.Repo.Dir = filepath.Join(c.Workspace.Root, RepoNameFromURL(c.Repo.URL))
	}
	c.Repo.Dir = expandHome(c.Repo.Dir)

	if c.Identity.CredentialHelper == "" {
		c.Identity.CredentialHelper = DefaultCredentialHelper
	}

	if c.Provision.Mode == "" {
		c.Provision.Mode = model.ModeAuto.String()
	}
	if c.Provision.Image == "" {
		c.Provision.Image = DefaultImage
	}
	if c.Provision.Cores == 0 {
		c.Provision.Cores = DefaultCores
	}
}

// Resolve is the full configuration pipeline used by every command:
// locate the file (unless an explicit path is given), load it, apply
// defaults, and validate. The returned path names the file actually
// used, for verbose logging.
func Resolve(explicitPath string) (*Config, string, error) {
	path := explicitPath
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		path, err = Find(cwd)
		if err != nil {
			return nil, "", err
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}

	cfg.ApplyDefaults()

	if errs := ValidateConfig(cfg); len(errs) > 0 {
		return nil, "", model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("invalid configuration in %s", path),
			joinValidationErrors(errs),
		)
	}

	return cfg, path, nil
}

// RepoNameFromURL derives the local directory name for a repository
// from its remote URL, the same way `git clone` picks a default
// directory: the last path segment with any ".git" suffix removed.
//
// Examples:
//
//	https://github.com/org/lab-models.git → "lab-models"
//	git@github.com:org/lab-models.git     → "lab-models"
//	https://example.com/repos/analysis/   → "analysis"
func RepoNameFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")

	// Handle scp-like syntax (git@host:org/repo.git) by also cutting
	// at the last colon. For URLs with a scheme the slash cut already
	// wins because it comes later in the string.
	if idx := strings.LastIndexAny(trimmed, "/:"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}

	return strings.TrimSuffix(trimmed, ".git")
}

// expandHome expands a leading "~" or "~/" to the user's home
// directory. Paths without the prefix pass through unchanged, as do
// paths for users whose home directory cannot be determined.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	// "~otheruser/..." is not supported; leave it for the shell.
	return path
}
