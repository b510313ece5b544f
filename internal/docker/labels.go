package docker

import (
	"time"
)

// Label key constants define the Docker label keys attached to every
// provisioning container labsync starts. The labels are the only
// persistence mechanism — there is no external state file — and they
// let status and doctor attribute leftover containers from interrupted
// runs to their workspace.
//
// All keys share the "labsync." prefix to namespace them and avoid
// collisions with labels set by other tools.
const (
	// LabelPrefix is the common prefix for all labsync labels.
	LabelPrefix = "labsync."

	// LabelManagedBy identifies containers started by labsync.
	// This is the primary label used for filtering and discovery.
	// Key: "labsync.managed-by", Value: always "labsync".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelWorkspace stores the absolute path of the repository the
	// provisioning run was installing packages for.
	// Key: "labsync.workspace", Value: absolute path.
	LabelWorkspace = LabelPrefix + "workspace"

	// LabelCreatedAt stores the start timestamp of the provisioning run.
	// Key: "labsync.created-at", Value: RFC3339 formatted timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
// All containers started by this CLI are tagged with this value,
// enabling discovery via Docker API label filters.
const ManagedByValue = "labsync"

// BuildLabels constructs the Docker label map for a provisioning
// container working on the given repository directory.
//
// The timestamp is taken as a parameter rather than read from the clock
// so callers (and tests) control it; time.RFC3339 in UTC keeps the
// value consistent regardless of the host timezone.
func BuildLabels(repoDir string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelWorkspace: repoDir,
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// LabelArgs renders a label map as `docker run` command-line arguments,
// one `--label key=value` pair per label, in deterministic order.
//
// The provisioning container is started through the docker CLI rather
// than the SDK (see internal/provision), so the labels built for API
// filtering have to be convertible to CLI flags.
func LabelArgs(labels map[string]string) []string {
	// Fixed key order so the generated command line is stable.
	keys := []string{LabelManagedBy, LabelWorkspace, LabelCreatedAt}

	args := make([]string, 0, 2*len(labels))
	for _, key := range keys {
		if value, ok := labels[key]; ok {
			args = append(args, "--label", key+"="+value)
		}
	}
	return args
}
