package imagemagick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Rasterizer renders every page of a document into one image.
type Rasterizer interface {
	Rasterize(ctx context.Context, src, dest string) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args, env []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithEnv appends environment overrides to the inherited process environment.
func WithEnv(env []string) Option {
	return func(c *Client) {
		c.env = append([]string(nil), env...)
	}
}

// Client wraps the ImageMagick CLI.
type Client struct {
	binary  string
	density int
	env     []string
	exec    Executor
}

// New constructs an ImageMagick client rendering at density DPI.
func New(binary string, density int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("magick binary required")
	}
	if density <= 0 {
		return nil, fmt.Errorf("invalid density %d", density)
	}
	client := &Client{
		binary:  binary,
		density: density,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Rasterize stacks all pages of src vertically into the image dest. The output
// format follows the extension of dest.
func (c *Client) Rasterize(ctx context.Context, src, dest string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dest) == "" {
		return errors.New("rasterize: source and destination required")
	}
	output, err := c.exec.Run(ctx, c.binary, c.args(src, dest), c.env)
	if err != nil {
		if detail := strings.TrimSpace(string(output)); detail != "" {
			return fmt.Errorf("rasterize %s: %w: %s", src, err, detail)
		}
		return fmt.Errorf("rasterize %s: %w", src, err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("rasterize %s: no output image: %w", src, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("rasterize %s: empty output image", src)
	}
	return nil
}

func (c *Client) args(src, dest string) []string {
	density := strconv.Itoa(c.density)
	return []string{"-density", density + "x" + density, src, "-append", dest}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}
