package transport

import (
	"sync"
	"sync/atomic"

	"justapengu.in/telemetry/internal/metrics"
	"justapengu.in/telemetry/pkg/f1"
)

// DefaultSubscriberBuffer is the queue length of a subscription created with a size of zero.
const DefaultSubscriberBuffer = 64

// Policy decides which packet is lost when a subscriber's queue is full.
type Policy int

const (
	// DropNewest discards the packet being published.
	DropNewest Policy = iota

	// DropOldest discards the oldest queued packet to make room, so a slow reader always
	// catches up to the latest state.
	DropOldest
)

// Hub fans decoded packets out to subscribers. Publishing never blocks.
type Hub struct {
	drops   *DropReporter
	metrics *metrics.Metrics

	mutex         sync.RWMutex
	subscriptions map[*Subscription]struct{}
	closed        bool
}

func NewHub(drops *DropReporter, m *metrics.Metrics) *Hub {
	return &Hub{
		drops:         drops,
		metrics:       m,
		subscriptions: make(map[*Subscription]struct{}),
	}
}

// Subscribe returns a subscription with a queue of size packets. Subscribing to a closed hub
// returns an already closed subscription.
func (h *Hub) Subscribe(size int, policy Policy) *Subscription {
	if size <= 0 {
		size = DefaultSubscriberBuffer
	}

	s := &Subscription{
		hub:    h,
		policy: policy,
		ch:     make(chan *f1.Packet, size),
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		s.closed = true
		close(s.ch)

		return s
	}

	h.subscriptions[s] = struct{}{}
	h.metrics.SetSubscribers(len(h.subscriptions))

	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.ch)
	delete(h.subscriptions, s)

	h.metrics.SetSubscribers(len(h.subscriptions))
}

// HasSubscribers reports whether publishing would deliver to anyone.
func (h *Hub) HasSubscribers() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.subscriptions) > 0
}

func (h *Hub) Publish(packet *f1.Packet) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for s := range h.subscriptions {
		if !s.offer(packet) {
			h.drop(s)
		}
	}
}

func (h *Hub) drop(s *Subscription) {
	atomic.AddUint64(&s.dropped, 1)

	h.metrics.PacketDropped()

	if h.drops != nil {
		h.drops.Drop()
	}
}

// Close closes every subscription. Packets published afterwards are discarded.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for s := range h.subscriptions {
		s.closed = true
		close(s.ch)
	}

	h.subscriptions = make(map[*Subscription]struct{})
	h.closed = true

	h.metrics.SetSubscribers(0)
}

// Subscription is a queue of decoded packets. The channel returned by Packets is closed when
// the subscription or its hub is closed.
type Subscription struct {
	hub    *Hub
	policy Policy
	ch     chan *f1.Packet

	// guarded by hub.mutex
	closed bool

	// serialises evict-and-retry for DropOldest
	offerMutex sync.Mutex

	dropped uint64
}

func (s *Subscription) Packets() <-chan *f1.Packet {
	return s.ch
}

// Dropped returns the number of packets this subscriber has lost.
func (s *Subscription) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

func (s *Subscription) Close() {
	s.hub.remove(s)
}

// offer queues packet and reports false if a packet was lost doing so.
func (s *Subscription) offer(packet *f1.Packet) bool {
	select {
	case s.ch <- packet:
		return true
	default:
	}

	if s.policy == DropNewest {
		return false
	}

	s.offerMutex.Lock()
	defer s.offerMutex.Unlock()

	evicted := false

	for {
		select {
		case s.ch <- packet:
			return !evicted
		default:
		}

		select {
		case <-s.ch:
			evicted = true
		default:
		}
	}
}
