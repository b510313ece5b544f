// Package cli — up_test.go tests the "labsync up" command: the full
// bootstrap pipeline from configuration to provisioned packages.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// fakeRscript installs a fake Rscript binary ahead of the real PATH (so
// git stays reachable) and returns the file the fake records its
// invocation into: working directory on the first line, then one
// argument per line.
func fakeRscript(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test fakes an executable with a shell script")
	}

	binDir := t.TempDir()
	invocationFile := filepath.Join(binDir, "invocation.txt")
	script := fmt.Sprintf("#!/bin/sh\n{ pwd; printf '%%s\\n' \"$@\"; } > %s\nexit 0\n", invocationFile)
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "Rscript"), []byte(script), 0755))

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return invocationFile
}

// readInvocation parses the fake Rscript's record into the working
// directory and the arguments after the script path.
func readInvocation(t *testing.T, invocationFile string) (dir string, args []string) {
	t.Helper()

	data, err := os.ReadFile(invocationFile)
	require.NoError(t, err, "fake Rscript should have recorded its invocation")

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2, "invocation should have a directory and a script path")
	assert.Contains(t, lines[1], "labsync-install-", "first argument should be the materialized installer script")
	return lines[0], lines[2:]
}

// TestUpCommand_FullPipeline runs the whole bootstrap on a fresh
// machine state: workspace created, repository cloned, installer
// invoked in the repository directory with the built-in package list.
func TestUpCommand_FullPipeline(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())
	invocationFile := fakeRscript(t)

	bare := seedRemote(t, "main", nil)
	workspaceRoot := filepath.Join(t.TempDir(), "lab")
	cfgPath := writeTestConfig(t, workspaceRoot, bare)

	output, err := execute(t, "--config", cfgPath, "up")
	require.NoError(t, err)

	assert.Contains(t, output, "Analysis environment ready at")
	assert.Contains(t, output, "provisioned (local mode)")

	repoDir := filepath.Join(workspaceRoot, "remote")
	assert.FileExists(t, filepath.Join(repoDir, "README.md"))

	dir, args := readInvocation(t, invocationFile)
	wantDir, _ := filepath.EvalSymlinks(repoDir)
	gotDir, _ := filepath.EvalSymlinks(dir)
	assert.Equal(t, wantDir, gotDir, "installer should run in the repository directory")
	assert.Contains(t, args, "tidyverse")
	assert.Contains(t, args, "cmdstanr")
	assert.Contains(t, args, "--cores")
	assert.NotContains(t, args, "--skip-backend", "default manifest installs the CmdStan backend")
}

// TestUpCommand_EmptyRemoteStillProvisions verifies the tolerated
// caveat end to end: an empty remote leaves nothing to synchronize, and
// the pipeline still provisions the analysis toolchain.
func TestUpCommand_EmptyRemoteStillProvisions(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())
	invocationFile := fakeRscript(t)

	bare := filepath.Join(t.TempDir(), "remote.git")
	runTestGit(t, t.TempDir(), "init", "--bare", bare)

	// The local working copy exists but has no commits, matching a
	// half-finished manual setup.
	workspaceRoot := filepath.Join(t.TempDir(), "lab")
	repoDir := filepath.Join(workspaceRoot, "remote")
	require.NoError(t, os.MkdirAll(workspaceRoot, 0755))
	runTestGit(t, workspaceRoot, "init", "-b", "main", repoDir)
	runTestGit(t, repoDir, "remote", "add", "origin", bare)

	output, err := execute(t, "--config", writeTestConfig(t, workspaceRoot, bare), "up")
	require.NoError(t, err, "an empty remote must not fail the pipeline")

	assert.Contains(t, output, "nothing to synchronize yet")
	assert.FileExists(t, invocationFile, "provisioning must still run for an empty repository")
}

// TestUpCommand_SyncFailureStopsProvisioning verifies stage ordering:
// when synchronization fails, the installer is never invoked.
func TestUpCommand_SyncFailureStopsProvisioning(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	invocationFile := fakeRscript(t)

	missingRemote := filepath.Join(t.TempDir(), "no-such-remote.git")
	cfgPath := writeTestConfig(t, filepath.Join(t.TempDir(), "lab"), missingRemote)

	_, err := execute(t, "--config", cfgPath, "up")
	requireCLICode(t, err, model.ExitCloneFailed)

	assert.NoFileExists(t, invocationFile, "installer must not run after a failed synchronization")
}

// TestUpCommand_RepoManifestOverrides verifies that a packages.yaml
// checked into the repository replaces the built-in package list.
func TestUpCommand_RepoManifestOverrides(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())
	invocationFile := fakeRscript(t)

	manifest := "packages:\n  - brms\nbackend:\n  install: false\n"
	bare := seedRemote(t, "main", map[string]string{"packages.yaml": manifest})
	cfgPath := writeTestConfig(t, filepath.Join(t.TempDir(), "lab"), bare)

	_, err := execute(t, "--config", cfgPath, "up")
	require.NoError(t, err)

	_, args := readInvocation(t, invocationFile)
	assert.Equal(t, []string{"--cores", "2", "--skip-backend", "brms"}, args,
		"repository manifest should drive the installer invocation")
}

// TestUpCommand_JSONOutput verifies the combined machine-readable
// result document.
func TestUpCommand_JSONOutput(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())
	fakeRscript(t)

	bare := seedRemote(t, "main", nil)
	cfgPath := writeTestConfig(t, filepath.Join(t.TempDir(), "lab"), bare)

	output, err := execute(t, "--config", cfgPath, "--json", "up")
	require.NoError(t, err)

	var result struct {
		Sync        *model.SyncReport `json:"sync"`
		Provisioned bool              `json:"provisioned"`
		Mode        string            `json:"mode"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &result),
		"JSON mode output should be a single document, got: %s", output)
	require.NotNil(t, result.Sync)
	assert.Equal(t, model.OutcomeCloned, result.Sync.Outcome)
	assert.True(t, result.Provisioned)
	assert.Equal(t, "local", result.Mode)
}
