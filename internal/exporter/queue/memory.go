package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemorySource is an in-process Source and Publisher. Un-acknowledged
// deliveries are handed out again after redeliverAfter.
type MemorySource struct {
	mu             sync.Mutex
	seq            int
	ready          []Delivery
	inflight       map[string]inflight
	redeliverAfter time.Duration
	notify         chan struct{}
	now            func() time.Time
}

type inflight struct {
	d     Delivery
	since time.Time
}

func NewMemorySource(redeliverAfter time.Duration) *MemorySource {
	return &MemorySource{
		inflight:       map[string]inflight{},
		redeliverAfter: redeliverAfter,
		notify:         make(chan struct{}, 1),
		now:            time.Now,
	}
}

func (m *MemorySource) Publish(_ context.Context, msg Message) (string, error) {
	body, err := Encode(msg)
	if err != nil {
		return "", err
	}
	return m.PublishRaw(body), nil
}

// PublishRaw enqueues body unvalidated and returns its delivery id.
func (m *MemorySource) PublishRaw(body []byte) string {
	m.mu.Lock()
	m.seq++
	id := strconv.Itoa(m.seq)
	m.ready = append(m.ready, Delivery{ID: id, Body: body})
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return id
}

func (m *MemorySource) Receive(ctx context.Context, max int, block time.Duration) ([]Delivery, error) {
	if out := m.take(max); len(out) > 0 {
		return out, nil
	}

	timer := time.NewTimer(block)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	case <-m.notify:
	}
	return m.take(max), nil
}

func (m *MemorySource) take(max int) []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.redeliverAfter > 0 {
		for id, f := range m.inflight {
			if now.Sub(f.since) >= m.redeliverAfter {
				delete(m.inflight, id)
				m.ready = append(m.ready, f.d)
			}
		}
	}

	n := min(max, len(m.ready))
	out := append([]Delivery(nil), m.ready[:n]...)
	m.ready = m.ready[n:]
	for _, d := range out {
		m.inflight[d.ID] = inflight{d: d, since: now}
	}
	return out
}

func (m *MemorySource) Ack(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, id)
	return nil
}

// Pending counts deliveries that are queued or awaiting acknowledgment.
func (m *MemorySource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ready) + len(m.inflight)
}
