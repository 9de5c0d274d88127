package gitsync

import (
	"context"
	"log/slog"
	"time"
)

// Puller is the part of Repo the Syncer needs.
type Puller interface {
	Pull(ctx context.Context) (PullResult, error)
}

// Syncer pulls the workspace on a fixed interval.
type Syncer struct {
	repo     Puller
	interval time.Duration
	log      *slog.Logger

	// OnChange is called after a pull that moved HEAD.
	OnChange func(PullResult)
}

// NewSyncer creates a Syncer. A nil logger uses slog.Default().
func NewSyncer(repo Puller, interval time.Duration, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{repo: repo, interval: interval, log: logger}
}

// Run pulls once immediately and then every interval until ctx is done.
// Pull errors are logged and do not stop the loop.
func (s *Syncer) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	s.log.Info("git sync started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.pullOnce(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("git sync stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Syncer) pullOnce(ctx context.Context) {
	res, err := s.repo.Pull(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("periodic git pull failed", "error", err)
		}
		return
	}
	if res.Changed && s.OnChange != nil {
		s.OnChange(res)
	}
}
