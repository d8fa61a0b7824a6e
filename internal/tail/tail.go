// Package tail keeps the most recent raw packets for crash diagnostics.
package tail

import (
	"sync"
)

// DefaultSize is the number of packets kept by Default.
const DefaultSize = 10

// Default is the process wide tail buffer.
var Default = New(DefaultSize)

// Buffer is a fixed size ring of raw packets. The oldest packet is overwritten first.
type Buffer struct {
	mutex   sync.Mutex
	packets [][]byte
	next    int
}

func New(size int) *Buffer {
	if size < 1 {
		size = 1
	}

	return &Buffer{
		packets: make([][]byte, size),
	}
}

// OnPacket stores raw. The slice is retained, callers must not modify it afterwards.
func (b *Buffer) OnPacket(raw []byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.packets[b.next] = raw
	b.next = (b.next + 1) % len(b.packets)
}

// Snapshot returns the retained packets, oldest first.
func (b *Buffer) Snapshot() [][]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	out := make([][]byte, 0, len(b.packets))

	for i := 0; i < len(b.packets); i++ {
		packet := b.packets[(b.next+i)%len(b.packets)]

		if packet == nil {
			continue
		}

		out = append(out, packet)
	}

	return out
}

func (b *Buffer) Size() int {
	return len(b.packets)
}
