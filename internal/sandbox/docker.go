package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"
)

const (
	defaultImage     = "python:3.12-alpine"
	memoryLimitBytes = 128 * 1024 * 1024
	cpuQuota         = 50000
	pidsLimit        = 64
	cleanupTimeout   = 10 * time.Second
)

// dockerAPI is the subset of the Docker client the runner needs.
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// DockerRunner executes code in a throwaway container with no network,
// a read-only root filesystem and tight resource limits.
type DockerRunner struct {
	cli     dockerAPI
	image   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewDockerRunner connects to the Docker daemon from the environment.
func NewDockerRunner(imageName string, logger *zap.Logger) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newDockerRunner(cli, imageName, logger), nil
}

func newDockerRunner(cli dockerAPI, imageName string, logger *zap.Logger) *DockerRunner {
	if imageName == "" {
		imageName = defaultImage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DockerRunner{cli: cli, image: imageName, timeout: DefaultTimeout, logger: logger}
}

// SetTimeout changes the per-run limit. Non-positive values are ignored.
func (d *DockerRunner) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

func (d *DockerRunner) Name() string { return "docker" }

func (d *DockerRunner) Run(ctx context.Context, code string) (Result, error) {
	id, err := d.create(ctx, code)
	if err != nil {
		return Result{}, err
	}
	defer d.remove(id)

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.cli.ContainerStart(runCtx, id, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("start container: %w", err)
	}

	var res Result
	statusCh, errCh := d.cli.ContainerWait(runCtx, id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		res.ExitCode = int(status.StatusCode)
	case err := <-errCh:
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			res.ExitCode = -1
			return res, nil
		}
		return Result{}, fmt.Errorf("wait container: %w", err)
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	logs, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return res, fmt.Errorf("read container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return res, fmt.Errorf("demultiplex logs: %w", err)
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, nil
}

func (d *DockerRunner) create(ctx context.Context, code string) (string, error) {
	config := &container.Config{
		Image:           d.image,
		Cmd:             []string{"python3", "-c", code},
		User:            "65534",
		WorkingDir:      "/tmp",
		Env:             []string{"PYTHONPATH=/tmp"},
		NetworkDisabled: true,
	}
	hostConfig := &container.HostConfig{
		NetworkMode:    container.NetworkMode("none"),
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,size=16m"},
		Resources: container.Resources{
			Memory:    memoryLimitBytes,
			CPUQuota:  cpuQuota,
			PidsLimit: ptr(int64(pidsLimit)),
		},
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if errdefs.IsNotFound(err) {
		d.logger.Info("Pulling sandbox image", zap.String("image", d.image))
		if pullErr := d.pull(ctx); pullErr != nil {
			return "", pullErr
		}
		resp, err = d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	}
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	return resp.ID, nil
}

func (d *DockerRunner) pull(ctx context.Context) error {
	rc, err := d.cli.ImagePull(ctx, d.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", d.image, err)
	}
	defer rc.Close()
	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", d.image, err)
	}
	return nil
}

func (d *DockerRunner) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		d.logger.Warn("Failed to remove sandbox container", zap.String("container_id", id), zap.Error(err))
	}
}

func ptr[T any](v T) *T {
	return &v
}
