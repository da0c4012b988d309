package usecase

import (
	"context"
	"log/slog"
	"time"
)

// ReapIdleSessions closes sessions idle for longer than
// modules.security.session_idle_minutes and returns how many were closed.
func (s *Usecase) ReapIdleSessions(ctx context.Context) int {
	idle := s.cfg.GetMinute("modules.security.session_idle_minutes")
	if idle <= 0 {
		return 0
	}

	now := s.clock.Now()

	s.mu.Lock()
	var stale []*Controller
	for id, ctrl := range s.sessions {
		if ctrl.Closed() || now.Sub(ctrl.LastActivity()) > idle {
			stale = append(stale, ctrl)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Close()
		slog.InfoContext(ctx, "idle security session closed", "account_id", ctrl.Account().ID, "session_id", ctrl.ID())
	}

	return len(stale)
}

// RunReaper reaps idle sessions every interval until ctx is done.
func (s *Usecase) RunReaper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s.ReapIdleSessions(ctx)
		}
	}
}
