// Package capture records raw telemetry packets to disk and plays them back.
//
// A capture file is a gzip stream of frames. Each frame is an int64 timestamp in milliseconds
// relative to the start of the recording, an int32 payload length and the payload, all
// little-endian. The frame stream has no header of its own; the format version is carried in
// the gzip header comment.
package capture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.FieldLogger

const (
	// FormatVersion is written into the gzip header comment of every capture.
	FormatVersion = 1

	frameHeaderSize = 8 + 4

	// MaxFrameSize bounds the payload length accepted when reading. Telemetry datagrams are far
	// smaller; a larger length means the stream is corrupt.
	MaxFrameSize = 64 * 1024
)

const formatCommentPrefix = "f1telemetry-capture/"

var formatComment = fmt.Sprintf("%s%d", formatCommentPrefix, FormatVersion)

var (
	ErrFrameTooLarge     = errors.New("capture: frame length out of range")
	ErrUnsupportedFormat = errors.New("capture: unsupported capture format")
	ErrNotCaptureFile    = errors.New("capture: not a capture file")
)

// PacketHandler receives raw packets.
type PacketHandler interface {
	OnPacket(raw []byte)
}

// PacketHandlerFunc adapts a function to a PacketHandler.
type PacketHandlerFunc func(raw []byte)

func (f PacketHandlerFunc) OnPacket(raw []byte) {
	f(raw)
}

// Frame is one recorded packet.
type Frame struct {
	// Timestamp is the number of milliseconds between the start of the recording and the
	// moment the packet was observed.
	Timestamp int64
	Data      []byte
}

func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	var header [frameHeaderSize]byte

	binary.LittleEndian.PutUint64(header[0:8], uint64(f.Timestamp))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(f.Data)))

	n, err := w.Write(header[:])

	if err != nil {
		return int64(n), err
	}

	m, err := w.Write(f.Data)

	return int64(n + m), err
}

// ReadFrame reads the next frame. It returns io.EOF if r is exhausted exactly at a frame
// boundary and io.ErrUnexpectedEOF if a frame is cut short.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [frameHeaderSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := int32(binary.LittleEndian.Uint32(header[8:12]))

	if length < 0 || length > MaxFrameSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "capture: frame length %d", length)
	}

	frame := &Frame{
		Timestamp: int64(binary.LittleEndian.Uint64(header[0:8])),
		Data:      make([]byte, length),
	}

	if _, err := io.ReadFull(r, frame.Data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return frame, nil
}
