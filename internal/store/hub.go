package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Loader reads the full current document set of a collection in native order.
type Loader func(ctx context.Context, collection string) ([]Document, error)

// Publisher announces a local write to other processes sharing the store.
type Publisher interface {
	Publish(ctx context.Context, collection string) error
}

// Hub fans collection snapshots out to subscribers. Backends call Notify
// after every successful write; a relay or a file watcher calls Refresh or
// RefreshAll when another process wrote. Docs handed to subscribers are shared and must not be mutated.
type Hub struct {
	load   Loader
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	relay  Publisher
	closed bool

	// serializes load+deliver so an older snapshot never overtakes a newer one
	refreshMu sync.Mutex
}

func NewHub(load Loader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		load:   load,
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// SetRelay attaches a cross-process publisher. Nil detaches it.
func (h *Hub) SetRelay(p Publisher) {
	h.mu.Lock()
	h.relay = p
	h.mu.Unlock()
}

// Subscribe registers a subscription and immediately delivers the current
// snapshot. The subscription closes itself when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := newSubscription(collection)
	sub.release = func() { h.remove(sub) }

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := h.subs[collection]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[collection] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Close)
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		stop()
	} else {
		sub.stop = stop
		sub.mu.Unlock()
	}

	h.refresh(ctx, collection)
	return sub, nil
}

// Notify reloads the given collections for local subscribers and announces
// the write on the relay, if any.
func (h *Hub) Notify(ctx context.Context, collections ...string) {
	// the write already happened; a cancelled caller must not starve subscribers
	ctx = context.WithoutCancel(ctx)
	for _, c := range collections {
		h.refresh(ctx, c)
	}

	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()
	if relay == nil {
		return
	}
	for _, c := range collections {
		if err := relay.Publish(ctx, c); err != nil {
			h.logger.Warn("Failed to relay change", "collection", c, "error", err)
		}
	}
}

// Refresh reloads a collection for local subscribers without relaying.
func (h *Hub) Refresh(ctx context.Context, collection string) {
	h.refresh(ctx, collection)
}

// RefreshAll reloads every collection that currently has subscribers.
func (h *Hub) RefreshAll(ctx context.Context) {
	for _, c := range h.collections() {
		h.refresh(ctx, c)
	}
}

func (h *Hub) collections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for c := range h.subs {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func (h *Hub) refresh(ctx context.Context, collection string) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	targets := h.subscribers(collection)
	if len(targets) == 0 {
		return
	}

	docs, err := h.load(ctx, collection)
	change := Change{Collection: collection, Docs: docs, Err: err}
	if err != nil {
		change.Docs = nil
		h.logger.Warn("Failed to load collection snapshot", "collection", collection, "error", err)
	}
	for _, s := range targets {
		s.deliver(change)
	}
}

func (h *Hub) subscribers(collection string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[collection]
	out := make([]*Subscription, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.collection]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.collection)
		}
	}
}

// Close closes every open subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
