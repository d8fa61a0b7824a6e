package transport

import (
	"sync"

	"justapengu.in/telemetry/internal/metrics"
	"justapengu.in/telemetry/pkg/f1"
)

// Dispatcher is the Handler that sits behind a listener or a replay. Every raw packet is passed
// to the registered raw handlers in registration order, then decoded and published to the hub
// if anyone is subscribed.
type Dispatcher struct {
	logger  Logger
	hub     *Hub
	metrics *metrics.Metrics

	mutex    sync.RWMutex
	handlers []registeredHandler
	nextID   uint64
}

type registeredHandler struct {
	id      uint64
	handler Handler
}

func NewDispatcher(hub *Hub, m *metrics.Metrics, logger Logger) *Dispatcher {
	return &Dispatcher{
		logger:  logger,
		hub:     hub,
		metrics: m,
	}
}

// AddHandler registers a raw packet handler. The returned function removes it again.
func (d *Dispatcher) AddHandler(handler Handler) (remove func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	id := d.nextID
	d.nextID++

	d.handlers = append(d.handlers, registeredHandler{id: id, handler: handler})

	return func() {
		d.mutex.Lock()
		defer d.mutex.Unlock()

		for i, h := range d.handlers {
			if h.id == id {
				d.handlers = append(d.handlers[:i:i], d.handlers[i+1:]...)
				return
			}
		}
	}
}

func (d *Dispatcher) OnPacket(raw []byte) {
	d.metrics.PacketReceived()

	d.mutex.RLock()
	handlers := d.handlers
	d.mutex.RUnlock()

	for _, h := range handlers {
		h.handler.OnPacket(raw)
	}

	if !d.hub.HasSubscribers() {
		return
	}

	packet, err := f1.Decode(raw)

	if err != nil {
		d.metrics.DecodeError()
		d.logger.WithError(err).Debug("Could not decode packet, dropping it")

		return
	}

	d.metrics.PacketDecoded(packet.Type().String())
	d.hub.Publish(packet)
}
