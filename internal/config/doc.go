// Package config handles loading and validation of the labsync.jsonc
// configuration file.
//
// The configuration file supports JSONC (JSON with Comments), so this
// package uses github.com/tidwall/jsonc to strip comments before parsing
// with the standard encoding/json library. Unlike ad-hoc formats, this
// keeps the file hand-editable and diff-friendly while still decoding
// into a strict schema.
//
// Key responsibilities:
//   - Locate labsync.jsonc in standard paths (working directory first,
//     then the user config directory)
//   - Parse with JSONC support and reject unknown keys
//   - Fill defaults (branch candidates, provisioning mode, image)
//   - Validate the four required synchronization inputs before any
//     external tool is invoked
//   - Write a commented default template for `labsync init`
package config
