package engine

import "time"

// sweepInterval is the cadence of the background manager; TTL resolution is
// therefore about one second.
const sweepInterval = time.Second

// StartManager launches the background manager goroutine: once per second it
// tries the exclusive lock (skipping the iteration when contended), sweeps
// expired keys, and snapshots when enough mutations accumulated. Calling it
// more than once is a no-op.
func (s *Store) StartManager() {
	s.managerOnce.Do(func() {
		s.managerWG.Add(1)
		go s.runManager()
	})
}

// StopManager stops the background manager and waits for it to exit.
func (s *Store) StopManager() {
	select {
	case <-s.managerStop:
		return // already stopped
	default:
	}
	close(s.managerStop)
	s.managerWG.Wait()
}

func (s *Store) runManager() {
	defer s.managerWG.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.managerStop:
			return
		case <-ticker.C:
		}

		// Workers keep priority under contention.
		if !s.mu.TryLock() {
			continue
		}
		expired := s.sweepExpiredLocked(time.Now().UnixMilli())
		if expired > 0 {
			s.logger.Debugf("[BG] expired %d key(s)", expired)
		}

		batch := int64(s.batchSize.Load())
		if batch > 0 && s.dirtyOps.Value() >= batch {
			ops := s.dirtyOps.Value()
			s.flushLocked(s.dbFilename)
			s.logger.Debugf("[BG] batch saved %d operations to disk", ops)
		}
		s.mu.Unlock()
	}
}

// sweepExpiredLocked removes every key whose deadline is strictly in the
// past. Caller holds the exclusive lock. Returns the number of keys removed.
func (s *Store) sweepExpiredLocked(nowMs int64) int {
	var expired []string
	for key, deadline := range s.ttl {
		if nowMs > deadline {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		value, ok := s.data[key]
		if !ok {
			continue
		}
		s.memUsed.Add(-entrySize(key, value))
		delete(s.data, key)
		delete(s.ttl, key)
		if s.caching {
			s.lru.Remove(key)
		}
		s.dirtyOps.Inc()
	}
	return len(expired)
}

// SweepExpired runs one expiry sweep against the given wall clock. It exists
// for callers that need a deterministic sweep (tests); the background manager
// uses the same underlying walk. Close does not sweep.
func (s *Store) SweepExpired(nowMs int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepExpiredLocked(nowMs)
}
