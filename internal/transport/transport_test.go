package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/telemetry/internal/metrics"
	"justapengu.in/telemetry/pkg/f1"
)

func testLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	return logger
}

// lobbyPacket builds a header only packet of a type that decodes to f1.EmptyData.
func lobbyPacket(frame uint32) []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, struct {
		PacketFormat     uint16
		GameMajorVersion uint8
		GameMinorVersion uint8
		PacketVersion    uint8
		PacketID         uint8
		SessionUID       uint64
		SessionTime      float32
		FrameIdentifier  uint32
		PlayerCarIndex   uint8
		SecondaryPlayer  uint8
	}{
		PacketFormat:    2020,
		PacketID:        uint8(f1.PacketTypeLobbyInfo),
		SessionUID:      42,
		FrameIdentifier: frame,
	})

	return buf.Bytes()
}

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = c.now.Add(d)
}

func newTestDropReporter(clock *fakeClock) (*DropReporter, *[]DropReport) {
	d := NewDropReporter(testLogger())
	d.now = clock.Now
	d.lastReport = clock.Now()

	var reports []DropReport

	d.OnReport(func(report DropReport) {
		reports = append(reports, report)
	})

	return d, &reports
}

func TestDropReporter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1600000000, 0)}
	d, reports := newTestDropReporter(clock)

	const burst = 25

	for i := 0; i < burst-1; i++ {
		d.Drop()
		clock.Advance(100 * time.Millisecond)
	}

	if len(*reports) != 0 {
		t.Fatalf("expected no reports within the interval, got %d", len(*reports))
	}

	clock.Advance(DefaultReportInterval)
	d.Drop()

	if len(*reports) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(*reports))
	}

	report := (*reports)[0]

	if report.Count != burst {
		t.Errorf("expected report to count %d drops, got %d", burst, report.Count)
	}

	if report.Interval < DefaultReportInterval {
		t.Errorf("expected report interval of at least %s, got %s", DefaultReportInterval, report.Interval)
	}

	if d.Pending() != 0 {
		t.Errorf("expected the counter to reset after reporting, got %d", d.Pending())
	}

	for i := 0; i < 100; i++ {
		d.Drop()
	}

	if len(*reports) != 1 {
		t.Errorf("expected no further reports until the interval elapses, got %d", len(*reports))
	}

	if d.Pending() != 100 {
		t.Errorf("expected 100 pending drops, got %d", d.Pending())
	}
}

func publish(h *Hub, n int) {
	for i := 0; i < n; i++ {
		packet, err := f1.Decode(lobbyPacket(uint32(i)))

		if err != nil {
			panic(err)
		}

		h.Publish(packet)
	}
}

func frames(s *Subscription) []uint32 {
	var out []uint32

	for {
		select {
		case packet, ok := <-s.Packets():
			if !ok {
				return out
			}

			out = append(out, packet.Header.FrameIdentifier)
		default:
			return out
		}
	}
}

func TestHubPolicies(t *testing.T) {
	t.Run("Drop newest", func(t *testing.T) {
		h := NewHub(nil, nil)
		s := h.Subscribe(2, DropNewest)

		publish(h, 5)

		if got := frames(s); fmt.Sprint(got) != "[0 1]" {
			t.Errorf("expected the first two packets to be kept, got %v", got)
		}

		if s.Dropped() != 3 {
			t.Errorf("expected 3 dropped packets, got %d", s.Dropped())
		}
	})

	t.Run("Drop oldest", func(t *testing.T) {
		h := NewHub(nil, nil)
		s := h.Subscribe(2, DropOldest)

		publish(h, 5)

		if got := frames(s); fmt.Sprint(got) != "[3 4]" {
			t.Errorf("expected the latest two packets to be kept, got %v", got)
		}

		if s.Dropped() != 3 {
			t.Errorf("expected 3 dropped packets, got %d", s.Dropped())
		}
	})

	t.Run("Independent subscribers", func(t *testing.T) {
		h := NewHub(nil, nil)
		slow := h.Subscribe(1, DropNewest)
		fast := h.Subscribe(10, DropNewest)

		publish(h, 5)

		if got := frames(fast); len(got) != 5 {
			t.Errorf("expected fast subscriber to receive 5 packets, got %v", got)
		}

		if got := frames(slow); len(got) != 1 {
			t.Errorf("expected slow subscriber to receive 1 packet, got %v", got)
		}
	})

	t.Run("Default size", func(t *testing.T) {
		h := NewHub(nil, nil)
		s := h.Subscribe(0, DropNewest)

		if cap(s.ch) != DefaultSubscriberBuffer {
			t.Errorf("expected default buffer of %d, got %d", DefaultSubscriberBuffer, cap(s.ch))
		}
	})
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil, metrics.New())

	s := h.Subscribe(4, DropNewest)
	other := h.Subscribe(4, DropOldest)

	if !h.HasSubscribers() {
		t.Fatal("expected hub to have subscribers")
	}

	s.Close()
	s.Close()

	if _, ok := <-s.Packets(); ok {
		t.Error("expected closed subscription channel")
	}

	publish(h, 1)

	if got := frames(other); len(got) != 1 {
		t.Errorf("expected remaining subscriber to receive 1 packet, got %v", got)
	}

	h.Close()

	if h.HasSubscribers() {
		t.Error("expected no subscribers after close")
	}

	if _, ok := <-other.Packets(); ok {
		t.Error("expected subscription to be closed with the hub")
	}

	other.Close()
	publish(h, 1)

	late := h.Subscribe(1, DropNewest)

	if _, ok := <-late.Packets(); ok {
		t.Error("expected subscription to a closed hub to be closed")
	}
}

func TestHubDropAccounting(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1600000000, 0)}
	d, reports := newTestDropReporter(clock)

	h := NewHub(d, nil)
	h.Subscribe(1, DropNewest)

	// fills the queue of a subscriber that never reads
	publish(h, 1)

	const burst = 10

	publish(h, burst-1)

	clock.Advance(DefaultReportInterval)

	publish(h, 1)

	if len(*reports) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(*reports))
	}

	if (*reports)[0].Count != burst {
		t.Errorf("expected report of %d drops, got %d", burst, (*reports)[0].Count)
	}

	if d.Pending() != 0 {
		t.Errorf("expected counter to reset, got %d", d.Pending())
	}
}

func TestDispatcher(t *testing.T) {
	h := NewHub(nil, nil)
	d := NewDispatcher(h, metrics.New(), testLogger())

	var order []string

	removeFirst := d.AddHandler(HandlerFunc(func(raw []byte) {
		order = append(order, "first")
	}))

	d.AddHandler(HandlerFunc(func(raw []byte) {
		order = append(order, "second")
	}))

	d.OnPacket(lobbyPacket(1))

	if fmt.Sprint(order) != "[first second]" {
		t.Errorf("expected handlers to run in registration order, got %v", order)
	}

	order = nil
	removeFirst()
	removeFirst()

	d.OnPacket(lobbyPacket(2))

	if fmt.Sprint(order) != "[second]" {
		t.Errorf("expected removed handler not to run, got %v", order)
	}

	s := h.Subscribe(10, DropNewest)

	d.OnPacket(lobbyPacket(3))
	d.OnPacket([]byte{1, 2, 3})
	d.OnPacket(lobbyPacket(4))

	if got := frames(s); fmt.Sprint(got) != "[3 4]" {
		t.Errorf("expected decodable packets to be published in order, got %v", got)
	}

	if len(order) != 4 {
		t.Errorf("expected raw handlers to see undecodable packets too, got %v", order)
	}
}

type collector struct {
	packets chan []byte
}

func (c *collector) OnPacket(raw []byte) {
	c.packets <- raw
}

func startListener(t *testing.T, ctx context.Context, handler Handler) (*Listener, <-chan error) {
	t.Helper()

	l := NewListener(0, handler, testLogger())

	errCh := make(chan error, 1)

	go func() {
		errCh <- l.Listen(ctx)
	}()

	select {
	case <-l.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not bind")
	}

	if l.State() != StateListening {
		t.Fatalf("expected listening state, got %s", l.State())
	}

	return l, errCh
}

func send(t *testing.T, l *Listener, datagrams ...[]byte) {
	t.Helper()

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: l.Addr().(*net.UDPAddr).Port})

	if err != nil {
		t.Fatal(err)
	}

	defer conn.Close()

	for _, datagram := range datagrams {
		if _, err := conn.Write(datagram); err != nil {
			t.Fatal(err)
		}
	}
}

func receive(t *testing.T, c *collector) []byte {
	t.Helper()

	select {
	case raw := <-c.packets:
		return raw
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a datagram")
		return nil
	}
}

func TestListener(t *testing.T) {
	c := &collector{packets: make(chan []byte, 10)}

	l, errCh := startListener(t, context.Background(), c)

	long := bytes.Repeat([]byte{0xab}, 1464)
	short := []byte{1, 2, 3}

	send(t, l, long, short)

	first := receive(t, c)
	second := receive(t, c)

	if !bytes.Equal(first, long) {
		t.Errorf("expected first datagram to be intact, got %d bytes", len(first))
	}

	if !bytes.Equal(second, short) {
		t.Errorf("expected second datagram %v, got %v", short, second)
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected a closed socket to end listening cleanly, got %s", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}

	if l.State() != StateClosed {
		t.Errorf("expected closed state, got %s", l.State())
	}

	if err := l.Listen(context.Background()); !errors.Is(err, ErrListenerUsed) {
		t.Errorf("expected ErrListenerUsed, got %v", err)
	}

	if err := l.Close(); err != nil {
		t.Errorf("expected closing a closed listener to be a no-op, got %s", err)
	}
}

func TestListenerContext(t *testing.T) {
	ctx, cfn := context.WithCancel(context.Background())

	c := &collector{packets: make(chan []byte, 10)}

	l, errCh := startListener(t, ctx, c)

	send(t, l, lobbyPacket(1))
	receive(t, c)

	cfn()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected cancellation to end listening cleanly, got %s", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenerStates(t *testing.T) {
	t.Run("Closed before listening", func(t *testing.T) {
		l := NewListener(0, HandlerFunc(func([]byte) {}), testLogger())

		if l.State() != StateUnbound || l.Addr() != nil {
			t.Fatalf("expected unbound listener, got %s", l.State())
		}

		if err := l.Close(); err != nil {
			t.Fatal(err)
		}

		if err := l.Listen(context.Background()); !errors.Is(err, ErrListenerUsed) {
			t.Errorf("expected ErrListenerUsed, got %v", err)
		}
	})

	t.Run("Port in use", func(t *testing.T) {
		c := &collector{packets: make(chan []byte, 1)}

		first, _ := startListener(t, context.Background(), c)
		defer first.Close()

		second := NewListener(uint16(first.Addr().(*net.UDPAddr).Port), c, testLogger())

		if err := second.Listen(context.Background()); err == nil {
			t.Error("expected binding a used port to fail")
		}

		if second.State() != StateClosed {
			t.Errorf("expected closed state after a failed bind, got %s", second.State())
		}
	})

	t.Run("String", func(t *testing.T) {
		if StateClosing.String() != "closing" || State(9).String() != "unknown(9)" {
			t.Error("unexpected state names")
		}
	})
}
