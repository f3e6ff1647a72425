package sandbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestProcessRunner(t *testing.T) {
	runner := &ProcessRunner{Interpreter: []string{"sh"}, Timeout: 2 * time.Second, Dir: t.TempDir()}

	tests := []struct {
		name     string
		code     string
		stdout   string
		stderr   string
		exitCode int
	}{
		{"stdout", "echo hello", "hello\n", "", 0},
		{"stderr and exit code", "echo boom >&2; exit 3", "", "boom\n", 3},
		{"constrained env", `[ -n "$PYTHONPATH" ] && echo "${HOME:-unset}"`, "unset\n", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runner.Run(context.Background(), tt.code)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if res.Stdout != tt.stdout || res.Stderr != tt.stderr || res.ExitCode != tt.exitCode {
				t.Errorf("got %+v", res)
			}
		})
	}
}

func TestProcessRunner_Timeout(t *testing.T) {
	runner := &ProcessRunner{Interpreter: []string{"sh"}, Timeout: 100 * time.Millisecond, Dir: t.TempDir()}

	start := time.Now()
	res, err := runner.Run(context.Background(), "while :; do :; done")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.TimedOut || res.OK() {
		t.Errorf("expected timeout, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("runner did not terminate promptly: %v", elapsed)
	}
}

func TestProcessRunner_MissingInterpreter(t *testing.T) {
	runner := &ProcessRunner{Interpreter: []string{"/nonexistent/python"}, Dir: t.TempDir()}
	if _, err := runner.Run(context.Background(), "print(1)"); err == nil {
		t.Fatal("expected error for missing interpreter")
	}
}

type fakeDocker struct {
	createCalls int
	pulled      bool
	removed     []string
	config      *container.Config
	hostConfig  *container.HostConfig
	exitCode    int64
	block       bool
	stdout      string
	stderr      string
	missing     bool
}

func (f *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.createCalls++
	f.config = config
	f.hostConfig = hostConfig
	if f.missing && !f.pulled {
		return container.CreateResponse{}, errdefs.ErrNotFound
	}
	return container.CreateResponse{ID: "c1"}, nil
}

func (f *fakeDocker) ContainerStart(context.Context, string, container.StartOptions) error {
	return nil
}

func (f *fakeDocker) ContainerWait(ctx context.Context, _ string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)
	if f.block {
		go func() {
			<-ctx.Done()
			errCh <- ctx.Err()
		}()
		return statusCh, errCh
	}
	statusCh <- container.WaitResponse{StatusCode: f.exitCode}
	return statusCh, errCh
}

func (f *fakeDocker) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if f.stdout != "" {
		stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	}
	if f.stderr != "" {
		stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	}
	return io.NopCloser(&buf), nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, opts container.RemoveOptions) error {
	if !opts.Force {
		return errors.New("expected forced removal")
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDocker) ImagePull(context.Context, string, image.PullOptions) (io.ReadCloser, error) {
	f.pulled = true
	return io.NopCloser(strings.NewReader(`{"status":"done"}`)), nil
}

func TestDockerRunner_Run(t *testing.T) {
	fake := &fakeDocker{stdout: "4\n", stderr: ""}
	runner := newDockerRunner(fake, "", nil)

	res, err := runner.Run(context.Background(), "print(2+2)")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.OK() || res.Stdout != "4\n" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(fake.removed) != 1 || fake.removed[0] != "c1" {
		t.Errorf("container not removed: %v", fake.removed)
	}
	if fake.hostConfig.NetworkMode != "none" || !fake.config.NetworkDisabled {
		t.Error("expected networking to be disabled")
	}
	if fake.config.Image != defaultImage {
		t.Errorf("unexpected image %q", fake.config.Image)
	}
}

func TestDockerRunner_PullsMissingImage(t *testing.T) {
	fake := &fakeDocker{missing: true, exitCode: 1, stderr: "Traceback\n"}
	runner := newDockerRunner(fake, "python:3.12-alpine", nil)

	res, err := runner.Run(context.Background(), "raise SystemExit(1)")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !fake.pulled || fake.createCalls != 2 {
		t.Errorf("expected pull and second create, pulled=%v creates=%d", fake.pulled, fake.createCalls)
	}
	if res.ExitCode != 1 || res.Stderr != "Traceback\n" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDockerRunner_Timeout(t *testing.T) {
	fake := &fakeDocker{block: true}
	runner := newDockerRunner(fake, "", nil)
	runner.SetTimeout(50 * time.Millisecond)

	res, err := runner.Run(context.Background(), "while True: pass")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.TimedOut {
		t.Errorf("expected timeout, got %+v", res)
	}
	if len(fake.removed) != 1 {
		t.Error("timed out container must still be removed")
	}
}
