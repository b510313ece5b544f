// Package ui holds the terminal styling shared by the human-readable
// command output: colored check marks for doctor, state badges for
// status, and dim/header accents for tables.
//
// Styles degrade automatically on non-color terminals, so callers can
// use the helpers unconditionally. JSON output paths bypass this
// package entirely.
package ui
