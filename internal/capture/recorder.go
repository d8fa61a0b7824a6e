package capture

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultQueueSize is the number of frames a recording buffers while the writer catches up.
const DefaultQueueSize = 1024

// Recorder starts recordings.
type Recorder struct {
	logger    Logger
	queueSize int

	// now is replaceable for tests
	now func() time.Time

	// onFrame is called by the writer after every frame is flushed
	onFrame func(frame *Frame)
}

func NewRecorder(logger Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Recorder{
		logger:    logger,
		queueSize: queueSize,
		now:       time.Now,
	}
}

// OnFrameWritten registers fn to be called from the writer goroutine after each frame is
// written.
func (r *Recorder) OnFrameWritten(fn func(frame *Frame)) {
	r.onFrame = fn
}

// Start creates the file at path and begins a recording. Packets passed to the returned
// recording's OnPacket are written in the order they arrive until Stop is called.
func (r *Recorder) Start(path string) (*Recording, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "capture: could not create capture directory")
	}

	f, err := os.Create(path)

	if err != nil {
		return nil, errors.Wrap(err, "capture: could not create capture file")
	}

	startedAt := r.now()

	bw := bufio.NewWriter(f)
	gz := gzip.NewWriter(bw)
	gz.Comment = formatComment
	gz.ModTime = startedAt

	rec := &Recording{
		id:        uuid.New(),
		path:      path,
		startedAt: startedAt,
		now:       r.now,
		logger:    r.logger.WithField("capture", path),
		queue:     make(chan *Frame, r.queueSize),
		done:      make(chan struct{}),
		file:      f,
		buf:       bw,
		gz:        gz,
		onFrame:   r.onFrame,
	}

	rec.logger.Infof("Recording started")

	go rec.loop()

	return rec, nil
}

// Recording is an active capture. OnPacket may be called from any goroutine; the file is only
// touched by the recording's writer goroutine.
type Recording struct {
	id        uuid.UUID
	path      string
	startedAt time.Time
	now       func() time.Time
	logger    Logger

	queue   chan *Frame
	done    chan struct{}
	onFrame func(frame *Frame)

	mutex   sync.RWMutex
	stopped bool

	statsMutex sync.Mutex
	frames     uint64
	bytes      uint64
	err        error

	file *os.File
	buf  *bufio.Writer
	gz   *gzip.Writer
}

func (r *Recording) ID() uuid.UUID {
	return r.id
}

func (r *Recording) Path() string {
	return r.path
}

func (r *Recording) StartedAt() time.Time {
	return r.startedAt
}

// OnPacket queues raw to be written. It blocks while the queue is full so that no packet is
// lost, and does nothing once the recording is stopped.
func (r *Recording) OnPacket(raw []byte) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.stopped {
		return
	}

	r.queue <- &Frame{
		Timestamp: r.now().Sub(r.startedAt).Milliseconds(),
		Data:      raw,
	}
}

// Frames returns the number of frames written so far.
func (r *Recording) Frames() uint64 {
	r.statsMutex.Lock()
	defer r.statsMutex.Unlock()

	return r.frames
}

// Bytes returns the number of uncompressed frame bytes written so far.
func (r *Recording) Bytes() uint64 {
	r.statsMutex.Lock()
	defer r.statsMutex.Unlock()

	return r.bytes
}

// Err returns the write error that ended the recording, if any.
func (r *Recording) Err() error {
	r.statsMutex.Lock()
	defer r.statsMutex.Unlock()

	return r.err
}

// Done is closed once the writer has finished and the file is closed.
func (r *Recording) Done() <-chan struct{} {
	return r.done
}

// Stop waits for queued frames to be written, finalises the file and returns the number of
// frames written. Calling Stop more than once returns the same result.
func (r *Recording) Stop() (uint64, error) {
	r.mutex.Lock()

	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}

	r.mutex.Unlock()

	<-r.done

	return r.Frames(), r.Err()
}

func (r *Recording) loop() {
	defer close(r.done)

	for frame := range r.queue {
		if r.Err() != nil {
			// the file is no longer written to, but the queue is drained so senders never block
			continue
		}

		n, err := r.writeFrame(frame)

		r.statsMutex.Lock()

		if err != nil {
			r.err = err
		} else {
			r.frames++
			r.bytes += uint64(n)
		}

		r.statsMutex.Unlock()

		if err != nil {
			r.logger.WithError(err).Error("Could not write capture frame, recording stopped. Partial capture kept")
			continue
		}

		if r.onFrame != nil {
			r.onFrame(frame)
		}
	}

	err := errorGroup(
		r.gz.Close(),
		r.buf.Flush(),
		r.file.Close(),
	)

	r.statsMutex.Lock()

	if r.err == nil && err != nil {
		r.err = errors.Wrap(err, "capture: could not finalise capture file")
	}

	frames, bytes, recErr := r.frames, r.bytes, r.err

	r.statsMutex.Unlock()

	logger := r.logger

	if recErr != nil {
		logger = logger.WithError(recErr)
	}

	logger.Infof("Recording stopped after %d frames (%s) in %s", frames, humanize.Bytes(bytes), r.now().Sub(r.startedAt).Round(time.Millisecond))
}

// writeFrame writes and flushes a single frame, so an interrupted recording loses at most the
// frame being written.
func (r *Recording) writeFrame(frame *Frame) (int64, error) {
	n, err := frame.WriteTo(r.gz)

	if err != nil {
		return n, errors.Wrap(err, "capture: could not write frame")
	}

	if err := r.gz.Flush(); err != nil {
		return n, errors.Wrap(err, "capture: could not flush frame")
	}

	if err := r.buf.Flush(); err != nil {
		return n, errors.Wrap(err, "capture: could not flush frame")
	}

	return n, nil
}

func errorGroup(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
