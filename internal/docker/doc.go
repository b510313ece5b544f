// Package docker provides Docker Engine API wrappers for the container
// provisioning mode of the labsync CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Daemon availability checks (Ping) and image presence checks
//   - Discovery of labsync-labeled provisioning containers, so status
//     and doctor can report leftovers from interrupted runs
//
// Running the provisioning container itself happens through the docker
// CLI (see internal/provision); this package covers the API side.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
