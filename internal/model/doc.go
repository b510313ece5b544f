// Package model defines the domain types and value objects for the
// labsync CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (RepoState, SyncReport, ProvisionMode, etc.) are transient
// representations derived from the filesystem and from git command output
// at runtime — labsync keeps no state files of its own.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
