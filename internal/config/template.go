// template.go provides the commented default configuration written by
// `labsync init`.
package config

import (
	"fmt"
	"os"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// DefaultConfigTemplate returns the default labsync.jsonc content as a
// commented JSONC document. Every field the loader understands appears
// here with its default value or a placeholder, so a new user can edit
// the file without consulting any other documentation.
func DefaultConfigTemplate() string {
	return `{
  // labsync configuration.
  // JSONC: comments and trailing commas are allowed.

  "workspace": {
    // Local root directory the repository is synchronized under.
    // A leading ~ expands to your home directory.
    "root": "~/lab"
  },

  "repo": {
    // Remote repository to clone and keep in sync. Required.
    "url": "https://github.com/your-org/your-analysis-repo.git",

    // Local checkout directory. Defaults to <workspace.root>/<repo name>.
    //"dir": "~/lab/your-analysis-repo",

    // Candidate branch names, probed in order; first success wins.
    "branches": ["main", "master"]
  },

  "identity": {
    // Git identity written only when your global config has none.
    // Existing values are never overwritten.
    "name": "Your Name",
    "email": "you@example.com",

    // Credential helper configured the same way (write-if-absent).
    "credentialHelper": "store"
  },

  "provision": {
    // How to run the package installer: "auto", "local", or "container".
    // auto uses a local Rscript when available and falls back to Docker.
    "mode": "auto",

    // Container image for the container mode.
    "image": "rocker/verse:4.4",

    // Optional packages.yaml overriding the built-in package list.
    //"manifest": "packages.yaml",

    // Build parallelism for the CmdStan backend installation.
    "cores": 2
  }
}
`
}

// WriteDefaultConfig writes the default template to the given path.
// It refuses to overwrite an existing file: `labsync init` must never
// clobber a configuration the user already edited.
func WriteDefaultConfig(path string) error {
	// O_EXCL makes creation and the existence check atomic.
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

	if _, err := f.WriteString(DefaultConfigTemplate()); err != nil {
		return model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to write %s", path),
			err,
		)
	}
	return nil
}
