package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// Monitor probes the pool every health interval, and immediately after an
// operation reports a connectivity failure, until ctx is cancelled.
func (s *Store) Monitor(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.nudge:
		}
		if err := s.CheckHealth(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("History pool still unhealthy", "err", err)
		}
	}
}

// CheckHealth probes the current pool and recreates it when the probe fails.
// It returns nil when the pool is healthy or was recovered.
func (s *Store) CheckHealth(ctx context.Context) error {
	db := s.pool.Load()
	if db == nil {
		return fmt.Errorf("%w: store is closed", domain.ErrUnavailable)
	}
	if s.recovering.Load() {
		return fmt.Errorf("%w: recovery in progress", domain.ErrUnavailable)
	}

	err := s.probe(ctx, db)
	if err == nil {
		return nil
	}
	if s.hooks.OnProbeFailure != nil {
		s.hooks.OnProbeFailure(err)
	}
	s.logger.Warn("History pool probe failed", "dialect", s.dialect.Name, "err", err)
	return s.recover(ctx, db)
}

// probe acquires a connection, pings it and releases it.
func (s *Store) probe(ctx context.Context, db *sql.DB) error {
	pctx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	conn, err := db.Conn(pctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.PingContext(pctx)
}

// recover replaces failed with a fresh pool. Only one recovery runs at a
// time, and a pool that has already been replaced is left alone.
func (s *Store) recover(ctx context.Context, failed *sql.DB) error {
	if !s.recovering.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: recovery in progress", domain.ErrUnavailable)
	}
	defer s.recovering.Store(false)

	if s.pool.Load() != failed {
		return nil
	}

	start := time.Now()
	s.logger.Info("Recreating history pool", "dialect", s.dialect.Name)

	fresh, err := s.newPool(ctx)
	if err != nil {
		s.logger.Error("History pool recreation failed", "err", err)
		return err
	}
	if !s.pool.CompareAndSwap(failed, fresh) {
		// Closed concurrently.
		_ = fresh.Close()
		return fmt.Errorf("%w: store is closed", domain.ErrUnavailable)
	}
	_ = failed.Close()

	s.recoveries.Add(1)
	elapsed := time.Since(start)
	s.logger.Info("History pool recovered", "elapsed", elapsed)
	if s.hooks.OnRecovered != nil {
		s.hooks.OnRecovered(elapsed)
	}
	return nil
}

// requestProbe wakes Monitor without blocking the caller.
func (s *Store) requestProbe() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}
