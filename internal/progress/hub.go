package progress

import (
	"sync"
	"time"
)

const (
	subscriberBuffer = 64

	// DefaultTerminalRetention is how long a finished job's last event is
	// remembered. The job store stays authoritative after that.
	DefaultTerminalRetention = 10 * time.Minute
)

// Hub fans job events out to subscribers and remembers the latest event per
// job so late subscribers start from the current state.
type Hub struct {
	mu        sync.Mutex
	subs      map[string]map[*subscriber]struct{}
	latest    map[string]Event
	expiry    map[string]*time.Timer
	retention time.Duration
}

type subscriber struct {
	ch chan Event
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithTerminalRetention sets how long terminal events are kept.
func WithTerminalRetention(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.retention = d
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:      make(map[string]map[*subscriber]struct{}),
		latest:    make(map[string]Event),
		expiry:    make(map[string]*time.Timer),
		retention: DefaultTerminalRetention,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers e to the job's subscribers without blocking. A full
// subscriber loses its oldest buffered event. Terminal events close every
// subscription for the job.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[e.JobID] = e
	h.stopExpiry(e.JobID)
	if e.Terminal() {
		h.scheduleExpiry(e.JobID)
	}
	for sub := range h.subs[e.JobID] {
		sub.send(e)
		if e.Terminal() {
			close(sub.ch)
		}
	}
	if e.Terminal() {
		delete(h.subs, e.JobID)
	}
}

// Sink returns a Sink publishing events for jobID.
func (h *Hub) Sink(jobID string) Sink {
	return func(e Event) error {
		e.JobID = jobID
		h.Publish(e)
		return nil
	}
}

// Subscribe returns a channel of events for jobID and a cancel function. The
// channel first receives the latest known event, and is closed after a
// terminal event or on cancel.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.latest[jobID]; ok {
		sub.ch <- last
		if last.Terminal() {
			close(sub.ch)
			return sub.ch, func() {}
		}
	}
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*subscriber]struct{})
	}
	h.subs[jobID][sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[jobID][sub]; ok {
				delete(h.subs[jobID], sub)
				close(sub.ch)
				if len(h.subs[jobID]) == 0 {
					delete(h.subs, jobID)
				}
			}
		})
	}
	return sub.ch, cancel
}

// Latest returns the last event published for jobID.
func (h *Hub) Latest(jobID string) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.latest[jobID]
	return e, ok
}

// Forget drops the remembered state for jobID.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.latest, jobID)
	h.stopExpiry(jobID)
}

// scheduleExpiry drops jobID's state after the retention period unless a
// newer event replaced the timer. Callers hold h.mu.
func (h *Hub) scheduleExpiry(jobID string) {
	var timer *time.Timer
	timer = time.AfterFunc(h.retention, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.expiry[jobID] != timer {
			return
		}
		delete(h.expiry, jobID)
		delete(h.latest, jobID)
	})
	h.expiry[jobID] = timer
}

func (h *Hub) stopExpiry(jobID string) {
	if timer, ok := h.expiry[jobID]; ok {
		timer.Stop()
		delete(h.expiry, jobID)
	}
}

func (s *subscriber) send(e Event) {
	select {
	case s.ch <- e:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- e:
	default:
	}
}
