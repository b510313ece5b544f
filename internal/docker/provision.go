// provision.go implements the Docker API queries the provisioning flow
// needs: image presence checks and discovery of labsync-labeled
// containers.
package docker

import (
	"context"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"

	"github.com/mmr-tortoise/labsync/internal/model"
)

// ProvisionContainer describes one labsync-labeled container as
// reported by the Docker API. Fields are plain strings so the CLI can
// render them directly in tables and JSON.
type ProvisionContainer struct {
	// ID is the full container ID.
	ID string `json:"id"`

	// Name is the container name with the leading "/" stripped.
	Name string `json:"name"`

	// State is Docker's short state string ("running", "exited", ...).
	State string `json:"state"`

	// Image is the image reference the container was started from.
	Image string `json:"image"`

	// Workspace is the repository path the provisioning run belonged
	// to, read from the labsync.workspace label.
	Workspace string `json:"workspace"`

	// CreatedAt is the start timestamp from the labsync.created-at
	// label; zero when the label is missing or malformed.
	CreatedAt time.Time `json:"createdAt"`
}

// ListProvisionContainers queries the Docker daemon for all containers
// carrying the "labsync.managed-by=labsync" label, stopped ones
// included. A provisioning container normally removes itself
// (`docker run --rm`), so anything this returns is a leftover from an
// interrupted run — status and doctor surface these.
func ListProvisionContainers(ctx context.Context, cli *Client) ([]ProvisionContainer, error) {
	// Filter on the management label server-side; Docker does this more
	// efficiently than listing everything and filtering in Go.
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerUnavailable,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]ProvisionContainer, 0, len(containers))
	for _, c := range containers {
		result = append(result, summarizeContainer(c))
	}

	return result, nil
}

// summarizeContainer converts a Docker API container struct into a
// ProvisionContainer. Pure mapping, no side effects.
func summarizeContainer(c types.Container) ProvisionContainer {
	// Docker returns names as a slice, each with a leading "/" that is
	// an artifact of the API, not meaningful to users.
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	// A missing or malformed created-at label degrades to a zero time
	// rather than an error: the container is still worth listing.
	createdAt, _ := time.Parse(time.RFC3339, c.Labels[LabelCreatedAt])

	return ProvisionContainer{
		ID:        c.ID,
		Name:      name,
		State:     c.State,
		Image:     c.Image,
		Workspace: c.Labels[LabelWorkspace],
		CreatedAt: createdAt,
	}
}

// HasImage reports whether the given image reference is present in the
// local image store. Used by doctor to tell the user whether the first
// container-mode run will need a pull.
func HasImage(ctx context.Context, cli *Client, reference string) (bool, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("reference", reference),
	)

	images, err := cli.Inner().ImageList(ctx, image.ListOptions{
		Filters: filterArgs,
	})
	if err != nil {
		return false, model.WrapCLIError(
			model.ExitDockerUnavailable,
			"failed to list Docker images",
			err,
		)
	}

	return len(images) > 0, nil
}
