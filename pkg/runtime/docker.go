package runtime

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// Info is the subset of container state the controller needs: the
// runtime-assigned host port, the main process pid, and liveness.
type Info struct {
	HostPort int
	PID      int
	Running  bool
	State    string
}

// CreateOpts describes a worker container to start
type CreateOpts struct {
	Image        string
	InternalPort int

	// StoragePath, when set, is bind-mounted at /storage inside the container
	// so functions can exchange artifacts through the shared volume
	StoragePath string
}

// Driver is the capability surface over the container runtime
type Driver interface {
	// Create starts a container with the internal port bound to a
	// runtime-chosen host port, and returns the runtime id
	Create(ctx context.Context, name string, opts CreateOpts) (string, error)

	// Inspect reports the host port mapping, pid and runtime state
	Inspect(ctx context.Context, id string) (Info, error)

	// Logs fetches the last tail lines of container output
	Logs(ctx context.Context, id string, tail int) ([]byte, error)

	// Stop gracefully stops a container, killing after grace
	Stop(ctx context.Context, id string, grace time.Duration) error

	// Remove deletes a container
	Remove(ctx context.Context, id string, force bool) error

	Close() error
}

// DockerDriver implements Driver against the Docker Engine API
type DockerDriver struct {
	cli *client.Client
}

// NewDockerDriver connects to the Docker daemon. An empty host uses the
// environment (DOCKER_HOST or the default socket).
func NewDockerDriver(host string) (*DockerDriver, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker daemon: %w", err)
	}

	return &DockerDriver{cli: cli}, nil
}

// Close closes the daemon connection
func (d *DockerDriver) Close() error {
	if d.cli != nil {
		return d.cli.Close()
	}
	return nil
}

// Create starts a container. The internal port is published to a host port
// chosen by the daemon, which is the only party that can allocate without
// collisions across managers.
func (d *DockerDriver) Create(ctx context.Context, name string, opts CreateOpts) (string, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(opts.InternalPort))
	if err != nil {
		return "", fmt.Errorf("%w: bad internal port %d", types.ErrCreateRefused, opts.InternalPort)
	}

	cfg := &container.Config{
		Image:        opts.Image,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		// Empty HostPort asks the daemon for an ephemeral port
		PortBindings: nat.PortMap{port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}}},
	}
	if opts.StoragePath != "" {
		hostCfg.Binds = []string{opts.StoragePath + ":/storage"}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", types.ErrImageMissing, opts.Image)
		}
		return "", fmt.Errorf("%w: %v", types.ErrCreateRefused, err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Best-effort cleanup of the half-created container
		_ = d.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("%w: start: %v", types.ErrCreateRefused, err)
	}

	return resp.ID, nil
}

// Inspect reports the state and host port mapping of a container
func (d *DockerDriver) Inspect(ctx context.Context, id string) (Info, error) {
	inspected, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Info{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		return Info{}, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}

	info := Info{}
	if inspected.State != nil {
		info.PID = inspected.State.Pid
		info.Running = inspected.State.Running
		info.State = inspected.State.Status
	}
	if inspected.NetworkSettings != nil {
		info.HostPort = firstHostPort(inspected.NetworkSettings.Ports)
	}

	return info, nil
}

// firstHostPort extracts the first bound host port from a port map; 0 means
// the daemon has not published the mapping yet
func firstHostPort(ports nat.PortMap) int {
	for _, bindings := range ports {
		for _, b := range bindings {
			if b.HostPort == "" {
				continue
			}
			p, err := strconv.Atoi(b.HostPort)
			if err == nil && p > 0 {
				return p
			}
		}
	}
	return 0
}

// Logs returns the last tail lines of stdout+stderr, demultiplexed
func (d *DockerDriver) Logs(ctx context.Context, id string, tail int) ([]byte, error) {
	reader, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch logs for %s: %w", id, err)
	}
	defer reader.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, reader); err != nil {
		return out.Bytes(), fmt.Errorf("failed to demux logs for %s: %w", id, err)
	}
	return out.Bytes(), nil
}

// Stop stops a container, forcing a kill after grace
func (d *DockerDriver) Stop(ctx context.Context, id string, grace time.Duration) error {
	secs := int(grace.Seconds())
	err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

// Remove deletes a container
func (d *DockerDriver) Remove(ctx context.Context, id string, force bool) error {
	err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: force})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

var _ Driver = (*DockerDriver)(nil)
