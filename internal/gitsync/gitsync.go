// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gitsync synchronizes the workspace with its git remote: a
// connectivity check, commit-and-push of local edits guarded by a simple
// "remote is not ahead" check, and fast-forward pulls, optionally on a timer.
// Push and pull take a file lock so the dashboard, the CLI and the periodic
// syncer never run git concurrently on the same checkout.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/pdiddy/signage-workspace/internal/procexec"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

const (
	connectTimeout = 15 * time.Second
	localTimeout   = 10 * time.Second
	networkTimeout = 60 * time.Second

	lockRetryDelay = 200 * time.Millisecond
	lockWait       = 90 * time.Second
	lockFileName   = "git-sync.lock"
)

var (
	ErrGitMissing    = errors.New("git is not installed")
	ErrNotRepository = errors.New("no git repository")
	ErrRemoteAhead   = errors.New("remote has changes that are not pulled yet")
	ErrBusy          = errors.New("another git sync is in progress")

	// ErrTimeout matches any git step that exceeded its bound.
	ErrTimeout = procexec.ErrTimeout
)

// Config configures a Repo.
type Config struct {
	// RepoDir is the checkout root; it must contain .git.
	RepoDir string

	// CommitMessage is used when Push is called without a message.
	CommitMessage string

	// LockDir holds the sync lock file (default: RepoDir/.git).
	LockDir string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.CommitMessage == "" {
		c.CommitMessage = types.DefaultCommitMessage
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(c.RepoDir, ".git")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Repo runs git commands against one checkout.
type Repo struct {
	cfg  Config
	exec procexec.Executor
	lock *flock.Flock
}

// New creates a Repo that runs the system git.
func New(cfg Config) *Repo {
	return newRepo(cfg, procexec.Default)
}

func newRepo(cfg Config, exec procexec.Executor) *Repo {
	cfg.defaults()
	return &Repo{
		cfg:  cfg,
		exec: exec,
		lock: flock.New(filepath.Join(cfg.LockDir, lockFileName)),
	}
}

// Dir returns the checkout root.
func (r *Repo) Dir() string { return r.cfg.RepoDir }

// PushResult describes a completed push.
type PushResult struct {
	// Committed is false when there were no local changes to commit.
	Committed bool `json:"committed" yaml:"committed"`
	Message   string `json:"message" yaml:"message"`
}

// PullResult describes a completed pull.
type PullResult struct {
	Changed bool   `json:"changed" yaml:"changed"`
	Before  string `json:"before" yaml:"before"`
	After   string `json:"after" yaml:"after"`
}

// Connect verifies that the remote is reachable with the configured
// credentials.
func (r *Repo) Connect(ctx context.Context) error {
	if err := r.checkRepo(); err != nil {
		return err
	}
	if _, err := r.git(ctx, connectTimeout, "fetch", "--dry-run"); err != nil {
		return err
	}
	r.cfg.Logger.Info("git remote reachable", "repo", r.cfg.RepoDir)
	return nil
}

// Push stages every change, commits it (an empty commit is not an error)
// and pushes. It refuses with ErrRemoteAhead when the upstream branch has
// commits that are not in HEAD.
func (r *Repo) Push(ctx context.Context, message string) (PushResult, error) {
	if message == "" {
		message = r.cfg.CommitMessage
	}
	res := PushResult{Message: message}

	if err := r.checkRepo(); err != nil {
		return res, err
	}
	unlock, err := r.acquire(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	if _, err := r.git(ctx, localTimeout, "add", "-A"); err != nil {
		return res, err
	}
	out, err := r.git(ctx, localTimeout, "commit", "-m", message)
	switch {
	case err == nil:
		res.Committed = true
	case isNothingToCommit(out):
	default:
		return res, err
	}

	if err := r.checkNotBehind(ctx); err != nil {
		return res, err
	}
	if _, err := r.git(ctx, networkTimeout, "push"); err != nil {
		return res, err
	}
	r.cfg.Logger.Info("pushed workspace", "repo", r.cfg.RepoDir, "committed", res.Committed)
	return res, nil
}

// Pull fetches and fast-forwards the checkout, reporting whether HEAD moved.
func (r *Repo) Pull(ctx context.Context) (PullResult, error) {
	var res PullResult
	if err := r.checkRepo(); err != nil {
		return res, err
	}
	unlock, err := r.acquire(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	if res.Before, err = r.head(ctx); err != nil {
		return res, err
	}
	if _, err := r.git(ctx, networkTimeout, "fetch"); err != nil {
		return res, err
	}
	if _, err := r.git(ctx, networkTimeout, "pull", "--ff-only"); err != nil {
		return res, err
	}
	if res.After, err = r.head(ctx); err != nil {
		return res, err
	}
	res.Changed = res.Before != res.After
	if res.Changed {
		r.cfg.Logger.Info("pulled workspace changes", "repo", r.cfg.RepoDir, "from", short(res.Before), "to", short(res.After))
	}
	return res, nil
}

// checkNotBehind fetches and counts upstream commits missing from HEAD. A
// branch without an upstream is not checked.
func (r *Repo) checkNotBehind(ctx context.Context) error {
	if _, err := r.git(ctx, networkTimeout, "fetch"); err != nil {
		return err
	}
	out, err := r.git(ctx, localTimeout, "rev-list", "--count", "HEAD..@{u}")
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrGitMissing) {
			return err
		}
		r.cfg.Logger.Debug("no upstream to compare against", "error", err)
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return fmt.Errorf("parsing rev-list output %q: %w", out, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d commit(s) behind; pull first", ErrRemoteAhead, n)
	}
	return nil
}

func (r *Repo) head(ctx context.Context) (string, error) {
	out, err := r.git(ctx, localTimeout, "rev-parse", "HEAD")
	return strings.TrimSpace(out), err
}

func (r *Repo) checkRepo() error {
	if _, err := os.Stat(filepath.Join(r.cfg.RepoDir, ".git")); err != nil {
		return fmt.Errorf("%w in %s", ErrNotRepository, r.cfg.RepoDir)
	}
	return nil
}

// acquire takes the sync lock, waiting up to lockWait.
func (r *Repo) acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(r.cfg.LockDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}
	lctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	ok, err := r.lock.TryLockContext(lctx, lockRetryDelay)
	if err != nil || !ok {
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("acquire git lock: %w", err)
	}
	return func() {
		if err := r.lock.Unlock(); err != nil {
			r.cfg.Logger.Warn("failed to release git lock", "error", err)
		}
	}, nil
}

// git runs one git command in the checkout and returns its output.
func (r *Repo) git(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	bin, err := r.exec.LookPath("git")
	if err != nil {
		return "", ErrGitMissing
	}
	out, err := r.exec.Run(ctx, procexec.Command{Name: bin, Args: args, Dir: r.cfg.RepoDir, Timeout: timeout})
	text := strings.TrimSpace(string(out))
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return text, fmt.Errorf("git %s: %w", args[0], ErrTimeout)
		}
		if text == "" {
			return text, fmt.Errorf("git %s: %w", args[0], err)
		}
		return text, fmt.Errorf("git %s: %s", args[0], types.Truncate(text))
	}
	return text, nil
}

func isNothingToCommit(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "nothing to commit") || strings.Contains(out, "nothing added to commit")
}

func short(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
