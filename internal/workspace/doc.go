// Package workspace prepares the local analysis environment: the root
// directory every synchronized repository lives under, and the global
// git identity that commits and authenticated clones need.
//
// Both operations are idempotent. Prepare leaves an existing directory
// untouched, and EnsureIdentity never overwrites configuration values
// that are already set — it only fills gaps.
package workspace
