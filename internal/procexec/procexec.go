// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package procexec runs external tools with a bounded timeout. Packages that
// shell out (office conversion, rasterization, git) depend on the Executor
// interface so tests can substitute a fake.
package procexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when a command exceeds its timeout.
var ErrTimeout = errors.New("command timed out")

// Command describes one external invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Executor abstracts command lookup and execution.
type Executor interface {
	// LookPath resolves a command name or path to an executable.
	LookPath(file string) (string, error)

	// Run executes cmd and returns its combined stdout and stderr.
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// OS is the production Executor backed by os/exec.
type OS struct{}

func (OS) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (OS) Run(ctx context.Context, c Command) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%s: %w after %s", c.Name, ErrTimeout, c.Timeout)
	}
	if err != nil {
		return out, fmt.Errorf("running %s: %w", c.Name, err)
	}
	return out, nil
}

// Default is the Executor used when a package is not given one.
var Default Executor = OS{}
