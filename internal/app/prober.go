package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/cityguide/internal/state"
)

const (
	defaultProbeInterval = 5 * time.Second
	maxBackoff           = 30 * time.Second
	probeTimeout         = 5 * time.Second
)

// Pinger checks that the API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartProber launches a goroutine that records API reachability in conn. It
// probes at interval while healthy and backs off while failing. It returns
// immediately.
func StartProber(ctx context.Context, conn *state.Connectivity, pinger Pinger, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	go func() {
		for {
			failures := probe(ctx, conn, pinger, log)
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// probe runs one check and returns the consecutive failure count.
func probe(ctx context.Context, conn *state.Connectivity, pinger Pinger, log *logrus.Entry) int {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := pinger.Ping(probeCtx)
	cancel()
	if ctx.Err() != nil {
		return 0
	}

	flipped := conn.Record(err)
	snap := conn.Snapshot()
	if flipped {
		if snap.IsOffline() {
			log.WithError(err).WithField("failures", snap.ConsecutiveFailures).Warn("api unreachable, offline")
		} else {
			log.Info("api reachable again")
		}
	} else if err != nil {
		log.WithError(err).Debug("probe failed")
	}
	return snap.ConsecutiveFailures
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff. A failure never probes sooner than base.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	limit := max(maxBackoff, base)
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	return backoff
}
