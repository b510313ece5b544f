// Package workspace prepares the local analysis environment.
package workspace

import (
	"fmt"
	"os"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// Prepare ensures the workspace root directory exists, creating it and
// any missing parents when necessary.
//
// The returned bool reports whether the directory was created by this
// call. An existing directory is left exactly as it is, so running
// Prepare repeatedly is safe.
//
// Returns a model.CLIError with ExitWorkspaceError when the path exists
// but is not a directory, or when creation fails.
func Prepare(root string) (bool, error) {
	info, err := os.Stat(root)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, model.NewCLIError(
				model.ExitWorkspaceError,
				fmt.Sprintf("workspace path %s exists but is not a directory", root),
			)
		}
		return false, nil
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0755); mkErr != nil {
			return false, model.WrapCLIError(
				model.ExitWorkspaceError,
				fmt.Sprintf("failed to create workspace directory %s", root),
				mkErr,
			)
		}
		return true, nil
	default:
		return false, model.WrapCLIError(
			model.ExitWorkspaceError,
			fmt.Sprintf("failed to inspect workspace path %s", root),
			err,
		)
	}
}

// ConfigStore abstracts the global git configuration. The concrete
// implementation is git.Runner; tests substitute an in-memory store.
type ConfigStore interface {
	// GlobalConfigGet returns the value of a global config key, or an
	// empty string (and nil error) when the key is unset.
	GlobalConfigGet(key string) (string, error)

	// GlobalConfigSet writes a global config key.
	GlobalConfigSet(key, value string) error
}

// Setting describes one global git configuration key after
// EnsureIdentity ran: its final value, and whether this run wrote it.
type Setting struct {
	// Key is the git configuration key (e.g., "user.name").
	Key string `json:"key"`

	// Value is the effective value after EnsureIdentity.
	Value string `json:"value"`

	// Written is true when this run wrote the value because the key was
	// previously unset. False means an existing value was preserved.
	Written bool `json:"written"`
}

// EnsureIdentity fills gaps in the global git identity configuration:
// user.name, user.email, and credential.helper.
//
// For each key the behavior is read-if-present, write-if-absent. A key
// that already has a value — whatever that value is — is never
// overwritten, so a machine configured by hand keeps its identity. A
// key whose desired value is empty is skipped entirely.
//
// The returned settings describe the effective state of every key that
// was considered, in a stable order, for verbose and status output.
func EnsureIdentity(store ConfigStore, name, email, credentialHelper string) ([]Setting, error) {
	keys := []struct {
		key     string
		desired string
	}{
		{"user.name", name},
		{"user.email", email},
		{"credential.helper", credentialHelper},
	}

	var settings []Setting
	for _, k := range keys {
		if k.desired == "" {
			continue
		}

		current, err := store.GlobalConfigGet(k.key)
		if err != nil {
			return settings, model.WrapCLIError(
				model.ExitWorkspaceError,
				fmt.Sprintf("failed to read global git config %s", k.key),
				err,
			)
		}

		if current != "" {
			settings = append(settings, Setting{Key: k.key, Value: current, Written: false})
			continue
		}

		if err := store.GlobalConfigSet(k.key, k.desired); err != nil {
			return settings, model.WrapCLIError(
				model.ExitWorkspaceError,
				fmt.Sprintf("failed to set global git config %s", k.key),
				err,
			)
		}
		settings = append(settings, Setting{Key: k.key, Value: k.desired, Written: true})
	}

	return settings, nil
}
