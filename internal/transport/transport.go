// Package transport receives telemetry datagrams and fans them out to raw packet handlers and
// decoded packet subscribers.
package transport

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.FieldLogger

// ReceiveBufferSize is the largest datagram the listener reads. Every F1 2020 packet fits.
const ReceiveBufferSize = 2048

var ErrListenerUsed = errors.New("transport: listener has already been used")

// Handler receives raw packets. OnPacket is called synchronously from the receiving goroutine.
// raw is a copy of the datagram shared by every handler, so handlers must not modify it.
type Handler interface {
	OnPacket(raw []byte)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(raw []byte)

func (f HandlerFunc) OnPacket(raw []byte) {
	f(raw)
}
