package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRepoState_String verifies that RepoState values produce the expected
// string representations for CLI output and JSON serialization.
func TestRepoState_String(t *testing.T) {
	tests := []struct {
		state    RepoState
		expected string
	}{
		{RepoAbsent, "absent"},
		{RepoPopulated, "populated"},
		{RepoEmpty, "empty"},
		{RepoInvalid, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

// TestRepoState_IsValid checks that only defined states pass validation.
func TestRepoState_IsValid(t *testing.T) {
	assert.True(t, RepoAbsent.IsValid())
	assert.True(t, RepoPopulated.IsValid())
	assert.True(t, RepoEmpty.IsValid())
	assert.True(t, RepoInvalid.IsValid())
	assert.False(t, RepoState("cloned").IsValid())
	assert.False(t, RepoState("").IsValid())
}

// TestParseRepoState verifies string-to-state conversion,
// including case normalization and error cases.
func TestParseRepoState(t *testing.T) {
	tests := []struct {
		input    string
		expected RepoState
		hasError bool
	}{
		{"absent", RepoAbsent, false},
		{"populated", RepoPopulated, false},
		{"empty", RepoEmpty, false},
		{"invalid", RepoInvalid, false},
		{"Absent", RepoAbsent, false},       // case insensitive
		{"POPULATED", RepoPopulated, false}, // case insensitive
		{"unknown", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRepoState(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestSyncOutcome_IsValid checks that only defined outcomes pass validation.
func TestSyncOutcome_IsValid(t *testing.T) {
	assert.True(t, OutcomeCloned.IsValid())
	assert.True(t, OutcomePulled.IsValid())
	assert.True(t, OutcomeCheckedOut.IsValid())
	assert.True(t, OutcomeEmptyRemote.IsValid())
	assert.False(t, SyncOutcome("merged").IsValid())
	assert.False(t, SyncOutcome("").IsValid())
}

// TestParseSyncOutcome verifies string-to-outcome conversion.
func TestParseSyncOutcome(t *testing.T) {
	tests := []struct {
		input    string
		expected SyncOutcome
		hasError bool
	}{
		{"cloned", OutcomeCloned, false},
		{"pulled", OutcomePulled, false},
		{"checked-out", OutcomeCheckedOut, false},
		{"empty-remote", OutcomeEmptyRemote, false},
		{"CLONED", OutcomeCloned, false}, // case insensitive
		{"rebased", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseSyncOutcome(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestSyncReport_Summary verifies the one-line summaries shown by the
// sync and up commands in text output mode.
func TestSyncReport_Summary(t *testing.T) {
	tests := []struct {
		name     string
		report   SyncReport
		expected string
	}{
		{
			name: "cloned",
			report: SyncReport{
				RemoteURL: "https://example.com/lab.git",
				Path:      "/home/u/lab/repo",
				Outcome:   OutcomeCloned,
			},
			expected: "cloned https://example.com/lab.git into /home/u/lab/repo",
		},
		{
			name:     "pulled clean",
			report:   SyncReport{Outcome: OutcomePulled, Branch: "main"},
			expected: "pulled main",
		},
		{
			name:     "pulled with stash",
			report:   SyncReport{Outcome: OutcomePulled, Branch: "master", Stashed: true},
			expected: "pulled master (local edits stashed)",
		},
		{
			name:     "checked out",
			report:   SyncReport{Outcome: OutcomeCheckedOut, Branch: "main"},
			expected: "checked out main",
		},
		{
			name:     "empty remote",
			report:   SyncReport{Outcome: OutcomeEmptyRemote},
			expected: "remote repository is empty — nothing to synchronize yet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.report.Summary())
		})
	}
}

// TestProvisionMode_IsValid checks that only defined modes pass validation.
func TestProvisionMode_IsValid(t *testing.T) {
	assert.True(t, ModeAuto.IsValid())
	assert.True(t, ModeLocal.IsValid())
	assert.True(t, ModeContainer.IsValid())
	assert.False(t, ProvisionMode("remote").IsValid())
	assert.False(t, ProvisionMode("").IsValid())
}

// TestParseProvisionMode verifies string-to-mode conversion.
func TestParseProvisionMode(t *testing.T) {
	tests := []struct {
		input    string
		expected ProvisionMode
		hasError bool
	}{
		{"auto", ModeAuto, false},
		{"local", ModeLocal, false},
		{"container", ModeContainer, false},
		{"Container", ModeContainer, false}, // case insensitive
		{"podman", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseProvisionMode(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestValidateBranchName checks branch candidate validation rules:
// - Must not be empty
// - Must start with an alphanumeric character
// - Allows dots, underscores, slashes, and hyphens
// - Rejects ".." sequences and whitespace
func TestValidateBranchName(t *testing.T) {
	tests := []struct {
		name     string
		hasError bool
	}{
		{"main", false},          // valid: plain name
		{"master", false},        // valid: plain name
		{"release/2026", false},  // valid: slash
		{"v1.2", false},          // valid: dot
		{"feature_x", false},     // valid: underscore
		{"hot-fix", false},       // valid: hyphen
		{"", true},               // invalid: empty
		{"-main", true},          // invalid: leading hyphen (flag injection)
		{"a..b", true},           // invalid: double dot
		{"has space", true},      // invalid: whitespace
		{".hidden", true},        // invalid: leading dot
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBranchName(tt.name)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitCloneFailed, "clone failed")
		assert.Equal(t, ExitCloneFailed, err.Code)
		assert.Equal(t, "clone failed", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("authentication required")
		err := WrapCLIError(ExitCloneFailed, "clone failed", inner)
		assert.Equal(t, ExitCloneFailed, err.Code)
		assert.Contains(t, err.Error(), "authentication required")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Verify errors.Is works with unwrapped errors (Go 1.13+ error chain).
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("authentication required")
		err := WrapCLIError(ExitCloneFailed, "clone failed", inner)
		assert.True(t, errors.Is(err, inner))
	})
}

// TestExitCodes_Distinct guards against accidental reuse of exit code
// values across failure classes, which would confuse calling scripts.
func TestExitCodes_Distinct(t *testing.T) {
	codes := []ExitCode{
		ExitSuccess,
		ExitGeneralError,
		ExitConfigError,
		ExitWorkspaceError,
		ExitCloneFailed,
		ExitNotARepository,
		ExitSyncFailed,
		ExitProvisionFailed,
		ExitDockerUnavailable,
	}

	seen := make(map[ExitCode]bool)
	for _, c := range codes {
		assert.False(t, seen[c], "exit code %d assigned twice", int(c))
		seen[c] = true
	}
}
