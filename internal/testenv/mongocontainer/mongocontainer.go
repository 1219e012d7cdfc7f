// Package mongocontainer starts a throwaway MongoDB server in Docker for
// integration tests of the mongo store.
package mongocontainer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoPort = nat.Port("27017/tcp")

// Config holds the container settings.
type Config struct {
	// Image is the MongoDB image to run.
	Image string
	// MemoryLimit caps the container memory (in bytes).
	MemoryLimit int64
	// StartTimeout bounds how long Start waits for the server to answer pings.
	StartTimeout time.Duration
}

// DefaultConfig returns settings suitable for a local test run.
func DefaultConfig() Config {
	return Config{
		Image:        "mongo:7",
		MemoryLimit:  512 * 1024 * 1024,
		StartTimeout: 60 * time.Second,
	}
}

// Container is a running MongoDB server bound to a random loopback port.
type Container struct {
	cli    *client.Client
	id     string
	uri    string
	logger *slog.Logger
}

// Start pulls the image if needed, runs a container and waits until the
// server accepts connections.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Container, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	reader, err := cli.ImagePull(pullCtx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	// Blocks until the pull completes.
	_, _ = io.Copy(io.Discard, reader)
	reader.Close()

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			mongoPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}},
		},
		Resources: container.Resources{
			Memory: cfg.MemoryLimit,
		},
		AutoRemove: false,
	}

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:        cfg.Image,
		ExposedPorts: nat.PortSet{mongoPort: struct{}{}},
	}, hostConfig, nil, nil, "")
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("ContainerCreate failed: %w", err)
	}

	c := &Container{cli: cli, id: resp.ID, logger: logger}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		c.Close()
		return nil, fmt.Errorf("ContainerStart failed: %w", err)
	}

	inspect, err := cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("ContainerInspect failed: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[mongoPort]
	if len(bindings) == 0 {
		c.Close()
		return nil, fmt.Errorf("no host port published for %s", mongoPort)
	}
	c.uri = fmt.Sprintf("mongodb://127.0.0.1:%s/?directConnection=true", bindings[0].HostPort)

	if err := c.waitReady(ctx, cfg.StartTimeout); err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("mongodb container is ready", slog.String("id", resp.ID[:12]), slog.String("uri", c.uri))
	return c, nil
}

// URI is the connection string for the container.
func (c *Container) URI() string {
	return c.uri
}

// Close force removes the container and closes the docker client.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.cli.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true})
	if err != nil {
		c.logger.Error("failed to remove container", slog.String("id", c.id), slog.String("error", err.Error()))
	}
	if cerr := c.cli.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Container) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		if err := ping(ctx, c.uri); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("mongodb did not become ready within %s", timeout)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func ping(ctx context.Context, uri string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cl, err := driver.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		return err
	}
	defer cl.Disconnect(context.Background())
	return cl.Ping(ctx, nil)
}
