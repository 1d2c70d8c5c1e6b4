package zbar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Mode selects the scan effort.
type Mode int

const (
	// ModeFast samples every third scan line.
	ModeFast Mode = iota
	// ModeThorough scans every line in both directions.
	ModeThorough
)

func (m Mode) String() string {
	if m == ModeThorough {
		return "thorough"
	}
	return "fast"
}

// exitNoSymbols is zbarimg's status when the image was readable but held no barcodes.
const exitNoSymbols = 4

// Decoder reads barcodes from an image.
type Decoder interface {
	Decode(ctx context.Context, image string, mode Mode) ([]string, error)
}

// Result is the outcome of one external command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor abstracts command execution for testability. A non-zero exit
// status is reported through Result.ExitCode; err is reserved for commands
// that could not run at all.
type Executor interface {
	Run(ctx context.Context, binary string, args, env []string) (Result, error)
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

// Client wraps the zbarimg CLI.
type Client struct {
	binary string
	env    []string
	exec   Executor
}

// New constructs a zbarimg client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("zbarimg binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Decode returns the text of every symbol found in image in reading order:
// rows top to bottom, left to right within a row. An image without symbols
// yields an empty slice.
func (c *Client) Decode(ctx context.Context, image string, mode Mode) ([]string, error) {
	if strings.TrimSpace(image) == "" {
		return nil, errors.New("decode: image path required")
	}
	res, err := c.exec.Run(ctx, c.binary, Args(image, mode), c.env)
	if err != nil {
		return nil, fmt.Errorf("zbarimg: %w", err)
	}
	switch res.ExitCode {
	case 0:
	case exitNoSymbols:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("zbarimg exited with status %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	symbols, err := ParseXML(res.Stdout)
	if err != nil {
		return nil, err
	}
	ordered := ReadingOrder(symbols)
	texts := make([]string, 0, len(ordered))
	for _, sym := range ordered {
		texts = append(texts, sym.Data)
	}
	return texts, nil
}

// Args builds the zbarimg argument list for one image.
func Args(image string, mode Mode) []string {
	args := []string{"--quiet", "--xml"}
	switch mode {
	case ModeThorough:
		args = append(args, "-Sx-density=1", "-Sy-density=1")
	default:
		args = append(args, "-Sx-density=3", "-Sy-density=3")
	}
	return append(args, image)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args, env []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
