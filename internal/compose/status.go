package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ContainerStatus is one compose-managed container as the dashboard shows
// it.
type ContainerStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Service string `json:"service"`
	Image   string `json:"image"`
	State   string `json:"state"`
	Status  string `json:"status"`
}

const (
	projectLabel = "com.docker.compose.project"
	serviceLabel = "com.docker.compose.service"
)

// StatusClient queries the Docker Engine API for compose-managed
// containers.
type StatusClient struct {
	docker client.APIClient
}

// NewStatusClient connects to the engine using the standard DOCKER_*
// environment, negotiating the API version with the daemon.
func NewStatusClient() (*StatusClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	return &StatusClient{docker: cli}, nil
}

// Containers lists every container (running or not) belonging to the
// compose project deployed at dir.
func (c *StatusClient) Containers(ctx context.Context, dir string) ([]ContainerStatus, error) {
	project := ProjectName(dir)
	list, err := c.docker.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", projectLabel+"="+project)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers for %s: %w", project, err)
	}

	statuses := make([]ContainerStatus, 0, len(list))
	for _, ctr := range list {
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		statuses = append(statuses, ContainerStatus{
			ID:      ctr.ID,
			Name:    name,
			Service: ctr.Labels[serviceLabel],
			Image:   ctr.Image,
			State:   ctr.State,
			Status:  ctr.Status,
		})
	}
	return statuses, nil
}

// Close releases the engine connection.
func (c *StatusClient) Close() error {
	return c.docker.Close()
}
