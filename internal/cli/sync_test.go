// Package cli — sync_test.go tests the sync command end to end against
// real git repositories, plus the fixture helpers shared by the other
// command tests in this package.
//
// Every remote in these tests is a local bare repository reached over
// the file transport, so no network access is involved. Tests shelling
// out to git skip when the binary is absent.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// execute runs the labsync root command with the given arguments,
// capturing combined output. The command tree is rebuilt per call so
// flag defaults reset between tests.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// requireGit skips the test when no git binary is available on PATH.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found on PATH")
	}
}

// runTestGit runs a git command in dir and fails the test on a non-zero
// exit.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// seedRemote creates a bare repository whose initial commit on branch
// contains the given files (plus a README). The bare path works as a
// clone URL over the local file transport.
func seedRemote(t *testing.T, branch string, files map[string]string) string {
	t.Helper()

	work := t.TempDir()
	runTestGit(t, work, "init", "-b", branch)
	runTestGit(t, work, "config", "user.email", "test@example.com")
	runTestGit(t, work, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(work, "README.md"), []byte("# models\n"), 0644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(work, name), []byte(content), 0644))
	}
	runTestGit(t, work, "add", ".")
	runTestGit(t, work, "commit", "-m", "initial commit")

	bare := filepath.Join(t.TempDir(), "remote.git")
	runTestGit(t, work, "clone", "--bare", work, bare)
	return bare
}

// writeTestConfig writes a minimal valid labsync.jsonc and returns its
// path. The provisioning mode is local so no test ever probes a Docker
// daemon.
func writeTestConfig(t *testing.T, workspaceRoot, repoURL string) string {
	t.Helper()

	content := fmt.Sprintf(`{
  // test configuration
  "workspace": { "root": %q },
  "repo": { "url": %q, "branches": ["main", "master"] },
  "identity": { "name": "Lab Bot", "email": "lab@example.com" },
  "provision": { "mode": "local" }
}`, workspaceRoot, repoURL)

	path := filepath.Join(t.TempDir(), "labsync.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// isolateGitGlobals points git's global configuration at a throwaway
// file so identity setup never touches the developer's real ~/.gitconfig,
// and blanks the system configuration so host-level identity cannot leak
// into the assertions.
func isolateGitGlobals(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitconfig")
	t.Setenv("GIT_CONFIG_GLOBAL", path)
	t.Setenv("GIT_CONFIG_SYSTEM", os.DevNull)
	return path
}

// chdir switches the working directory for the duration of the test.
// Commands that synchronize successfully change the process working
// directory, so tests restore it explicitly.
func chdir(t *testing.T, dir string) {
	t.Helper()

	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

// requireCLICode asserts that err carries the given exit code.
func requireCLICode(t *testing.T, err error, code model.ExitCode) *model.CLIError {
	t.Helper()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr, "error should be a CLIError")
	assert.Equal(t, code, cliErr.Code)
	return cliErr
}

// TestSyncCommand_ClonesAndReports runs the sync command against a
// fresh workspace: the repository is cloned and the summary printed.
func TestSyncCommand_ClonesAndReports(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())

	bare := seedRemote(t, "main", nil)
	workspaceRoot := filepath.Join(t.TempDir(), "lab")
	cfgPath := writeTestConfig(t, workspaceRoot, bare)

	output, err := execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)

	assert.Contains(t, output, "Synchronized: cloned")
	assert.DirExists(t, workspaceRoot, "workspace root should have been prepared")
	assert.FileExists(t, filepath.Join(workspaceRoot, "remote", "README.md"),
		"repository should be cloned under <workspace>/<repo name>")
}

// TestSyncCommand_JSONReport verifies that --json emits exactly one
// machine-readable report document with no progress noise.
func TestSyncCommand_JSONReport(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())

	bare := seedRemote(t, "main", nil)
	cfgPath := writeTestConfig(t, filepath.Join(t.TempDir(), "lab"), bare)

	output, err := execute(t, "--config", cfgPath, "--json", "sync")
	require.NoError(t, err)

	var report model.SyncReport
	require.NoError(t, json.Unmarshal([]byte(output), &report),
		"JSON mode output should be a single report document, got: %s", output)
	assert.Equal(t, model.OutcomeCloned, report.Outcome)
	assert.Equal(t, "main", report.Branch)
	assert.Equal(t, model.RepoAbsent, report.InitialState)
}

// TestSyncCommand_FillsIdentityGaps verifies the read-if-present,
// write-if-absent identity contract through the real command: unset
// keys are written from the configuration, existing values survive.
func TestSyncCommand_FillsIdentityGaps(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())

	// user.email is already configured; user.name is not.
	runTestGit(t, t.TempDir(), "config", "--global", "user.email", "existing@example.com")

	bare := seedRemote(t, "main", nil)
	cfgPath := writeTestConfig(t, filepath.Join(t.TempDir(), "lab"), bare)

	_, err := execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)

	name := runTestGit(t, t.TempDir(), "config", "--global", "user.name")
	assert.Contains(t, name, "Lab Bot", "unset key should be filled from the configuration")

	email := runTestGit(t, t.TempDir(), "config", "--global", "user.email")
	assert.Contains(t, email, "existing@example.com", "existing value must never be overwritten")
	assert.NotContains(t, email, "lab@example.com")
}

// TestSyncCommand_SecondRunIsNoOp verifies pipeline idempotence at the
// command level.
func TestSyncCommand_SecondRunIsNoOp(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)
	chdir(t, t.TempDir())

	bare := seedRemote(t, "main", nil)
	workspaceRoot := filepath.Join(t.TempDir(), "lab")
	cfgPath := writeTestConfig(t, workspaceRoot, bare)

	_, err := execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)

	repoDir := filepath.Join(workspaceRoot, "remote")
	headBefore := runTestGit(t, repoDir, "rev-parse", "HEAD")

	output, err := execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err, "second run must succeed unchanged")
	assert.Contains(t, output, "Synchronized: pulled")
	assert.Equal(t, headBefore, runTestGit(t, repoDir, "rev-parse", "HEAD"))
}

// TestSyncCommand_ForeignDirectoryFails verifies the command-level
// refusal when the repository path is occupied by a plain directory.
func TestSyncCommand_ForeignDirectoryFails(t *testing.T) {
	requireGit(t)
	isolateGitGlobals(t)

	bare := seedRemote(t, "main", nil)
	workspaceRoot := t.TempDir()
	cfgPath := writeTestConfig(t, workspaceRoot, bare)

	// Occupy <workspace>/remote with unrelated data.
	foreign := filepath.Join(workspaceRoot, "remote")
	require.NoError(t, os.MkdirAll(foreign, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(foreign, "thesis.docx"), []byte("precious"), 0644))

	_, err := execute(t, "--config", cfgPath, "sync")
	requireCLICode(t, err, model.ExitNotARepository)

	data, readErr := os.ReadFile(filepath.Join(foreign, "thesis.docx"))
	require.NoError(t, readErr)
	assert.Equal(t, "precious", string(data), "foreign directory must be left untouched")
}

// TestSyncCommand_MissingConfig verifies the configuration error path.
func TestSyncCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "labsync.jsonc"), "sync")
	cliErr := requireCLICode(t, err, model.ExitConfigError)
	assert.Contains(t, cliErr.Message, "configuration file not found")
}

// TestSyncCommand_InvalidConfig verifies that validation problems are
// reported before any git operation runs.
func TestSyncCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labsync.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "workspace": { "root": "" },
  "repo": { "url": "" }
}`), 0644))

	_, err := execute(t, "--config", path, "sync")
	cliErr := requireCLICode(t, err, model.ExitConfigError)
	assert.ErrorContains(t, cliErr, "workspace.root")
	assert.ErrorContains(t, cliErr, "repo.url")
}
