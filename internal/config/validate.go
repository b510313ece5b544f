// validate.go provides validation for the loaded configuration.
//
// Validation runs after ApplyDefaults and collects every problem into a
// single list, so the user fixes the whole file in one pass instead of
// replaying the command once per field.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// ValidationError represents a specific validation failure in the
// configuration file.
type ValidationError struct {
	// Field is the JSON field path that failed validation
	// (e.g., "repo.branches").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", FileName, e.Field, e.Message)
}

// ValidateConfig performs schema checks on a loaded and defaulted
// configuration. It returns a list of validation errors (empty list =
// valid configuration).
//
// Checks performed:
//   - workspace.root and repo.url are required
//   - repo.dir must be resolvable (set explicitly or derivable)
//   - repo.branches must be non-empty, each a valid branch name,
//     with no duplicates
//   - provision.mode must parse to a known mode
//   - provision.cores must be at least 1
func ValidateConfig(cfg *Config) []ValidationError {
	var errs []ValidationError

	// Check 1: the Environment Preparer needs a workspace directory.
	if cfg.Workspace.Root == "" {
		errs = append(errs, ValidationError{
			Field:   "workspace.root",
			Message: "workspace root directory is required",
		})
	}

	// Check 2: the synchronizer needs a remote URL.
	if cfg.Repo.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "repo.url",
			Message: "remote repository URL is required",
		})
	}

	// Check 3: the local repository directory must be known. ApplyDefaults
	// derives it from the URL and workspace root, so an empty value here
	// means both derivation inputs were missing too.
	if cfg.Repo.Dir == "" {
		errs = append(errs, ValidationError{
			Field:   "repo.dir",
			Message: "repository directory could not be determined (set repo.dir, or both workspace.root and repo.url)",
		})
	}

	// Check 4: branch candidates. The probing loop needs at least one
	// name, and every name must be safe to pass to git on the command line.
	if len(cfg.Repo.Branches) == 0 {
		errs = append(errs, ValidationError{
			Field:   "repo.branches",
			Message: "at least one candidate branch name is required",
		})
	}
	seen := make(map[string]bool, len(cfg.Repo.Branches))
	for i, branch := range cfg.Repo.Branches {
		if err := model.ValidateBranchName(branch); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("repo.branches[%d]", i),
				Message: err.Error(),
			})
			continue
		}
		if seen[branch] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("repo.branches[%d]", i),
				Message: fmt.Sprintf("duplicate candidate branch %q", branch),
			})
		}
		seen[branch] = true
	}

	// Check 5: provisioning mode must be one of the known values.
	if _, err := model.ParseProvisionMode(cfg.Provision.Mode); err != nil {
		errs = append(errs, ValidationError{
			Field:   "provision.mode",
			Message: err.Error(),
		})
	}

	// Check 6: cores drives `make -j` style parallelism in the backend
	// build; zero or negative values would hang or fail the toolchain.
	if cfg.Provision.Cores < 1 {
		errs = append(errs, ValidationError{
			Field:   "provision.cores",
			Message: fmt.Sprintf("cores must be at least 1, got %d", cfg.Provision.Cores),
		})
	}

	return errs
}

// joinValidationErrors flattens a list of validation errors into a
// single error whose message lists one problem per line. Used when
// wrapping the list into a CLIError for display.
func joinValidationErrors(errs []ValidationError) error {
	lines := make([]string, 0, len(errs))
	for i := range errs {
		lines = append(lines, errs[i].Error())
	}
	return errors.New(strings.Join(lines, "\n"))
}
