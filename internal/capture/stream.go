package capture

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// FrameSource is a forward only sequence of frames.
type FrameSource interface {
	// Next returns the next frame, or false once the source is exhausted.
	Next() (*Frame, bool)
	Close() error
}

// Stream reads frames from a capture file. Reaching the end of the file, a truncated trailing
// frame or a decompression error all end the stream; recordings are often cut off mid-write.
type Stream struct {
	rc io.ReadCloser
	gz *gzip.Reader

	done      bool
	err       error
	count     uint64
	closeOnce sync.Once
	closeErr  error
}

// Open opens the capture file at path.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrap(err, "capture: could not open capture file")
	}

	return NewStream(f)
}

// NewStream reads a capture from rc. rc is closed when the stream is closed.
func NewStream(rc io.ReadCloser) (*Stream, error) {
	s := &Stream{rc: rc}

	gz, err := gzip.NewReader(bufio.NewReader(rc))

	if err == io.EOF {
		// the recording was stopped before anything was flushed
		s.done = true
		return s, nil
	} else if err != nil {
		_ = rc.Close()

		return nil, errors.Wrapf(ErrNotCaptureFile, "capture: %s", err)
	}

	if comment := gz.Comment; comment != "" && comment != formatComment {
		_ = gz.Close()
		_ = rc.Close()

		if strings.HasPrefix(comment, formatCommentPrefix) {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "capture: format %q", strings.TrimPrefix(comment, formatCommentPrefix))
		}

		return nil, errors.Wrapf(ErrNotCaptureFile, "capture: unexpected gzip comment %q", comment)
	}

	s.gz = gz

	return s, nil
}

func (s *Stream) Next() (*Frame, bool) {
	if s.done {
		return nil, false
	}

	frame, err := ReadFrame(s.gz)

	if err != nil {
		s.done = true

		if err != io.EOF {
			s.err = err
		}

		_ = s.Close()

		return nil, false
	}

	s.count++

	return frame, true
}

// Err returns the error that ended the stream early, if any. It is informational: a stream
// that ends on an error has still delivered every complete frame before it.
func (s *Stream) Err() error {
	return s.err
}

// Count returns the number of frames read so far.
func (s *Stream) Count() uint64 {
	return s.count
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.done = true

		var gzErr error

		if s.gz != nil {
			gzErr = s.gz.Close()
		}

		s.closeErr = errorGroup(s.rc.Close(), gzErr)
	})

	return s.closeErr
}

// PacketList is an externally supplied list of packets used as a frame source, e.g. the last
// packets attached to a crash report. Frames are stamped interval apart.
type PacketList struct {
	packets  [][]byte
	interval int64
	next     int
}

func NewPacketList(packets [][]byte, intervalMillis int64) *PacketList {
	return &PacketList{
		packets:  packets,
		interval: intervalMillis,
	}
}

func (l *PacketList) Next() (*Frame, bool) {
	if l.next >= len(l.packets) {
		return nil, false
	}

	frame := &Frame{
		Timestamp: int64(l.next) * l.interval,
		Data:      l.packets[l.next],
	}

	l.next++

	return frame, true
}

func (l *PacketList) Close() error {
	l.next = len(l.packets)

	return nil
}
