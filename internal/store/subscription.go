package store

import "sync"

// Subscription delivers changes of one collection. The channel holds at most
// one pending change: a newer change replaces an unread one, so the producer
// never blocks on a slow reader.
type Subscription struct {
	collection string
	ch         chan Change

	mu      sync.Mutex
	closed  bool
	release func()
	stop    func() bool
}

func newSubscription(collection string) *Subscription {
	return &Subscription{collection: collection, ch: make(chan Change, 1)}
}

func (s *Subscription) Collection() string { return s.collection }

// Changes is closed once the subscription is closed.
func (s *Subscription) Changes() <-chan Change { return s.ch }

func (s *Subscription) deliver(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- c
}

// Close stops delivery and releases the subscription. Safe to call twice.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	release, stop := s.release, s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if release != nil {
		release()
	}
}
