package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"
)

type State int

const (
	StateUnbound State = iota
	StateListening
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateListening:
		return "listening"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Listener owns one UDP socket. A Listener listens at most once; a new Listener is needed to
// listen again after it is closed.
type Listener struct {
	port    uint16
	handler Handler
	logger  Logger

	mutex sync.Mutex
	state State
	conn  *net.UDPConn
	ready chan struct{}
}

func NewListener(port uint16, handler Handler, logger Logger) *Listener {
	return &Listener{
		port:    port,
		handler: handler,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Listen binds the socket and passes every received datagram to the listener's handler until
// the listener is closed or ctx is cancelled, both of which return nil. A receive error ends
// the loop and is returned.
func (l *Listener) Listen(ctx context.Context) error {
	conn, err := l.bind()

	if err != nil {
		return err
	}

	l.logger.Infof("UDP telemetry listener listening on: %s", conn.LocalAddr())

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-stop:
		}
	}()

	err = l.receive(conn)

	l.mutex.Lock()
	l.state = StateClosed
	l.mutex.Unlock()

	_ = conn.Close()

	l.logger.Infof("UDP telemetry listener closed")

	return err
}

func (l *Listener) bind() (*net.UDPConn, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.state != StateUnbound {
		return nil, ErrListenerUsed
	}

	defer close(l.ready)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(l.port)})

	if err != nil {
		l.state = StateClosed

		return nil, errors.Wrapf(err, "transport: could not listen on udp port %d", l.port)
	}

	l.conn = conn
	l.state = StateListening

	return conn, nil
}

func (l *Listener) receive(conn *net.UDPConn) error {
	buf := make([]byte, ReceiveBufferSize)

	for {
		n, _, err := conn.ReadFromUDP(buf)

		if errors.Is(err, net.ErrClosed) {
			return nil
		} else if err != nil {
			l.logger.WithError(err).Error("Could not read from UDP socket")

			return errors.Wrap(err, "transport: receive failed")
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		l.handler.OnPacket(raw)
	}
}

// Close closes the socket, which ends a running Listen. Closing a listener that never
// listened prevents it from listening.
func (l *Listener) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	switch l.state {
	case StateUnbound:
		l.state = StateClosed
		close(l.ready)

		return nil
	case StateListening:
		l.state = StateClosing

		return l.conn.Close()
	default:
		return nil
	}
}

func (l *Listener) State() State {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.state
}

// Ready is closed once the listener has bound its socket, failed to, or been closed.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

// Addr returns the bound address, or nil before the socket is bound.
func (l *Listener) Addr() net.Addr {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.conn == nil {
		return nil
	}

	return l.conn.LocalAddr()
}
