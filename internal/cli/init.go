// Package cli — init.go implements the "labsync init" command.
//
// The init command writes the default labsync.jsonc configuration
// template into the current directory, and optionally the default
// packages.yaml provisioning manifest next to it. Both writers refuse
// to overwrite existing files, so rerunning init on a configured
// directory fails loudly instead of clobbering user edits.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/labsync/internal/config"
	"github.com/mmr-tortoise/labsync/internal/model"
	"github.com/mmr-tortoise/labsync/internal/provision"
)

// initFlags holds the flag values for the init command.
// These are bound to cobra flags in NewInitCommand.
type initFlags struct {
	manifest bool // --manifest: also write the default packages.yaml
}

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default labsync.jsonc into the current directory",
		Long: `Write a commented default configuration file (labsync.jsonc) into the
current directory for editing.

With --manifest, the default provisioning manifest (packages.yaml) is
written as well, listing the built-in analysis package chain.

Existing files are never overwritten.

Examples:
  labsync init
  labsync init --manifest`,

		// No positional arguments are accepted for the init command.
		Args: cobra.NoArgs,

		// RunE returns an error to the root command's error handler.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.manifest, "manifest", false, "Also write the default packages.yaml manifest")

	return cmd
}

// runInit is the main logic function for the init command. It writes
// the requested template files into the current directory and reports
// what was written.
func runInit(out io.Writer, flags *initFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Step 1: Write the configuration template. WriteDefaultConfig fails
	// on an existing file, which is exactly the contract init promises.
	configFile := filepath.Join(cwd, config.FileName)
	if err := config.WriteDefaultConfig(configFile); err != nil {
		return err
	}
	written := []string{config.FileName}
	VerboseLog("wrote %s", configFile)

	// Step 2: Optionally write the provisioning manifest.
	if flags.manifest {
		manifestFile := filepath.Join(cwd, provision.ManifestName)
		if err := provision.WriteDefaultManifest(manifestFile); err != nil {
			return err
		}
		written = append(written, provision.ManifestName)
		VerboseLog("wrote %s", manifestFile)
	}

	printInitResult(out, written)
	return nil
}

// printInitResult outputs the init command result in text or JSON
// format, depending on the global --json flag.
func printInitResult(out io.Writer, written []string) {
	if IsJSONOutput() {
		result := struct {
			Written []string `json:"written"`
		}{Written: written}

		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	for _, name := range written {
		fmt.Fprintf(out, "Wrote %s\n", name)
	}
	fmt.Fprintln(out, "Edit the configuration, then run `labsync up`.")
}
