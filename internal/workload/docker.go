// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package workload talks to the managed workload's external
// collaborators: the container runtime that can restart it and the
// health endpoint that proves it is actually serving.
package workload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ContainerState is the subset of the runtime's inspect response the
// controller needs: whether the workload runs and the PID anchoring its
// network namespace.
type ContainerState struct {
	Running bool   `json:"Running"`
	Pid     int    `json:"Pid"`
	Status  string `json:"Status"`
}

type inspectResponse struct {
	ID    string         `json:"Id"`
	Name  string         `json:"Name"`
	State ContainerState `json:"State"`
}

// DockerClient is a lightweight client for the Docker Engine API over
// its Unix socket.
type DockerClient struct {
	client     *http.Client
	socketPath string
}

// NewDockerClient creates a new client connected to the given socket,
// or the default socket when empty.
func NewDockerClient(socketPath string) *DockerClient {
	if socketPath == "" {
		socketPath = "/var/run/docker.sock"
	}

	return &DockerClient{
		socketPath: socketPath,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
					return net.Dial("unix", socketPath)
				},
			},
			Timeout: 30 * time.Second,
		},
	}
}

// Inspect returns the workload container's state.
func (c *DockerClient) Inspect(ctx context.Context, name string) (*ContainerState, error) {
	endpoint := fmt.Sprintf("http://unix/containers/%s/json", url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docker socket request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("container %s not found", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var inspect inspectResponse
	if err := json.NewDecoder(resp.Body).Decode(&inspect); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &inspect.State, nil
}

// Restart restarts the workload container so a new binding takes
// effect. timeout is how long the runtime waits before killing the
// container.
func (c *DockerClient) Restart(ctx context.Context, name string, timeout time.Duration) error {
	endpoint := fmt.Sprintf("http://unix/containers/%s/restart?t=%d", url.PathEscape(name), int(timeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("docker socket request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("restart of %s failed with status %d", name, resp.StatusCode)
	}
	return nil
}
