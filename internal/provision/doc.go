// Package provision drives the embedded R installer script, the final
// stage of the bootstrap pipeline.
//
// The installer itself — package existence checks, conditional CRAN
// installs, CmdStan backend detection and installation — is a layer of
// check-then-install steps owned by the R ecosystem. This package does
// not reimplement any of it: the contract is to invoke the script once
// after synchronization succeeds and treat any non-zero exit status as
// a terminal failure.
//
// The script ships inside the binary via go:embed. Its package list
// comes from an optional packages.yaml manifest; without one, the
// built-in default list (the tidyverse/brms/cmdstanr chain) is used.
// Execution is local (Rscript on PATH), containerized (a rocker image
// with the repository bind-mounted), or auto, which prefers local and
// falls back to the container.
package provision
