package idb

import (
	"log/slog"
	"sync"
)

// scheduler starts transactions in creation order, holding back any
// transaction that conflicts with an earlier live one.
type scheduler struct {
	mu   sync.Mutex
	live []*Transaction
	wg   sync.WaitGroup

	// serial makes every pair of transactions conflict. In-memory
	// databases run on a single connection and need it.
	serial bool
	log    *slog.Logger
}

func (s *scheduler) add(t *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, t)
	s.startReady()
}

func (s *scheduler) finish(t *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.live {
		if u == t {
			s.live = append(s.live[:i], s.live[i+1:]...)
			break
		}
	}
	s.startReady()
}

// snapshot returns the live transactions in creation order.
func (s *scheduler) snapshot() []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Transaction(nil), s.live...)
}

// startReady must be called with mu held.
func (s *scheduler) startReady() {
	for i, t := range s.live {
		if t.started {
			continue
		}
		blocked := false
		for _, u := range s.live[:i] {
			if s.conflicts(u, t) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		t.started = true
		s.log.Debug("transaction started", "id", t.id, "mode", t.mode, "scope", t.scope)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			t.run()
		}()
	}
}

func (s *scheduler) conflicts(earlier, later *Transaction) bool {
	if s.serial {
		return true
	}
	if earlier.mode == ReadOnly && later.mode == ReadOnly {
		return false
	}
	if earlier.mode == ReadWrite && later.mode == ReadWrite {
		return true
	}
	return overlaps(earlier.scope, later.scope)
}

// wait blocks until every started transaction goroutine has returned.
func (s *scheduler) wait() { s.wg.Wait() }

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
