package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rapidia/firmware-export/internal/logger"
)

// Client is the set of version-control operations the export tools use.
type Client interface {
	// Status returns the short status of the working tree; empty means clean.
	Status(ctx context.Context) (string, error)
	// Checkout switches the working tree to branch.
	Checkout(ctx context.Context, branch string) error
	// Pull fetches and merges the upstream of the current branch.
	Pull(ctx context.Context) error
	// CommitAndPush stages everything, commits with message and pushes to remote.
	// An empty branch pushes the current HEAD to its namesake.
	CommitAndPush(ctx context.Context, message, remote, branch string) error
	// RevParseHead returns the full commit hash of HEAD.
	RevParseHead(ctx context.Context) (string, error)
}

// ErrCommandFailed is returned when a git invocation exits unsuccessfully.
var ErrCommandFailed = errors.New("git command failed")

// errEmptyRevision is returned when rev-parse prints nothing.
var errEmptyRevision = errors.New("empty revision")

// Git runs the git binary inside a fixed repository directory.
type Git struct {
	// dir is the repository root every command runs in.
	dir string
	// binary is the git executable name or path.
	binary string
	// timeout bounds every single invocation.
	timeout time.Duration
}

// Option configures Git.
type Option func(*Git)

// WithBinary overrides the git executable.
func WithBinary(binary string) Option {
	return func(g *Git) {
		if binary != "" {
			g.binary = binary
		}
	}
}

// WithTimeout bounds each git invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Git) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// NewGit creates a client for the repository at dir.
func NewGit(dir string, opts ...Option) *Git {
	g := &Git{
		dir:    dir,
		binary: "git",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Status runs `git status -s`.
func (g *Git) Status(ctx context.Context) (string, error) {
	return g.run(ctx, "status", "-s")
}

// Checkout runs `git checkout <branch>`.
func (g *Git) Checkout(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "checkout", branch)

	return err
}

// Pull runs `git pull`.
func (g *Git) Pull(ctx context.Context) error {
	_, err := g.run(ctx, "pull")

	return err
}

// CommitAndPush runs `git add -A`, `git commit -m <message>` and `git push <remote> <branch>`.
func (g *Git) CommitAndPush(ctx context.Context, message, remote, branch string) error {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return err
	}

	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return err
	}

	if branch == "" {
		branch = "HEAD"
	}

	_, err := g.run(ctx, "push", remote, branch)

	return err
}

// RevParseHead runs `git rev-parse HEAD`.
func (g *Git) RevParseHead(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	revision := strings.TrimSpace(out)
	if revision == "" {
		return "", errEmptyRevision
	}

	return revision, nil
}

// run executes git with args in g.dir and returns its stdout.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = g.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.DebugKV(ctx, "Running git", "dir", g.dir, "args", args)

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%w: %s %s: %w: %s",
			ErrCommandFailed, g.binary, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
