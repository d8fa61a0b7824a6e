// Package telemetry ties the F1 telemetry pipeline together: a packet source (the live UDP
// socket or a replay), the diagnostic tail, recordings and decoded packet subscribers.
package telemetry

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/telemetry/internal/capture"
	"justapengu.in/telemetry/internal/catalog"
	"justapengu.in/telemetry/internal/metrics"
	"justapengu.in/telemetry/internal/tail"
	"justapengu.in/telemetry/internal/transport"
	"justapengu.in/telemetry/pkg/f1"
)

type Logger = logrus.FieldLogger

var (
	ErrRecordingActive   = errors.New("telemetry: a recording is already active")
	ErrNoRecordingActive = errors.New("telemetry: no recording is active")
)

const captureFileTimeFormat = "2006-01-02_15-04-05.000"

type Service struct {
	config  *Config
	logger  Logger
	metrics *metrics.Metrics
	catalog catalog.Store

	tail       *tail.Buffer
	drops      *transport.DropReporter
	hub        *transport.Hub
	dispatcher *transport.Dispatcher
	recorder   *capture.Recorder

	recordingMutex  sync.Mutex
	recording       *capture.Recording
	removeRecording func()

	sessionMutex sync.Mutex
	sessionUID   uint64
	sessionCount uint64
	formatWarned bool
}

// NewService creates a service. store and m may be nil.
func NewService(config *Config, store catalog.Store, m *metrics.Metrics, logger Logger) *Service {
	s := &Service{
		config:   config,
		logger:   logger,
		metrics:  m,
		catalog:  store,
		drops:    transport.NewDropReporter(logger),
		recorder: capture.NewRecorder(logger, config.Capture.QueueSize),
	}

	if config.TailSize == tail.DefaultSize {
		s.tail = tail.Default
	} else {
		s.tail = tail.New(config.TailSize)
	}

	s.hub = transport.NewHub(s.drops, m)
	s.dispatcher = transport.NewDispatcher(s.hub, m, logger)
	s.dispatcher.AddHandler(s.tail)
	s.dispatcher.AddHandler(transport.HandlerFunc(s.trackSession))

	s.recorder.OnFrameWritten(func(*capture.Frame) {
		m.FrameWritten()
	})

	return s
}

// Subscribe returns a lossless-until-full feed of decoded packets: once size packets are
// queued, new packets are dropped for this subscriber. A size of zero uses the configured
// subscriber buffer.
func (s *Service) Subscribe(size int) *transport.Subscription {
	return s.hub.Subscribe(s.subscriberBuffer(size), transport.DropNewest)
}

// SubscribeLatest returns a feed that discards its oldest queued packets when full, for
// consumers that only care about the most recent state.
func (s *Service) SubscribeLatest(size int) *transport.Subscription {
	return s.hub.Subscribe(s.subscriberBuffer(size), transport.DropOldest)
}

func (s *Service) subscriberBuffer(size int) int {
	if size <= 0 {
		return s.config.Listener.SubscriberBuffer
	}

	return size
}

// TailSnapshot returns the most recent raw packets, oldest first.
func (s *Service) TailSnapshot() [][]byte {
	return s.tail.Snapshot()
}

// StartRecording starts capturing every raw packet to a new file in the capture directory.
func (s *Service) StartRecording() (*capture.Recording, error) {
	s.recordingMutex.Lock()
	defer s.recordingMutex.Unlock()

	if s.recording != nil {
		return nil, ErrRecordingActive
	}

	path := filepath.Join(s.config.Capture.Directory, time.Now().Format(captureFileTimeFormat)+".cap")

	rec, err := s.recorder.Start(path)

	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		err := s.catalog.UpsertRecording(&catalog.Recording{
			ID:        rec.ID(),
			Path:      rec.Path(),
			StartedAt: rec.StartedAt(),
		})

		if err != nil {
			s.logger.WithError(err).Error("Could not add recording to catalog")
		}
	}

	s.recording = rec
	s.removeRecording = s.dispatcher.AddHandler(rec)

	return rec, nil
}

// StopRecording stops the active recording and returns the number of frames it wrote. A write
// error that ended the recording early is returned alongside the frames written before it.
func (s *Service) StopRecording() (uint64, error) {
	s.recordingMutex.Lock()
	defer s.recordingMutex.Unlock()

	if s.recording == nil {
		return 0, ErrNoRecordingActive
	}

	rec := s.recording

	s.removeRecording()
	s.recording = nil
	s.removeRecording = nil

	frames, recErr := rec.Stop()

	if s.catalog != nil {
		entry := &catalog.Recording{
			ID:        rec.ID(),
			Path:      rec.Path(),
			StartedAt: rec.StartedAt(),
			StoppedAt: time.Now(),
			Frames:    frames,
			Bytes:     rec.Bytes(),
		}

		if recErr != nil {
			entry.Error = recErr.Error()
		}

		if err := s.catalog.UpsertRecording(entry); err != nil {
			s.logger.WithError(err).Error("Could not update recording in catalog")
		}
	}

	return frames, recErr
}

// ActiveRecording returns the running recording, or nil.
func (s *Service) ActiveRecording() *capture.Recording {
	s.recordingMutex.Lock()
	defer s.recordingMutex.Unlock()

	return s.recording
}

func (s *Service) Recordings() ([]*catalog.Recording, error) {
	if s.catalog == nil {
		return []*catalog.Recording{}, nil
	}

	return s.catalog.ListRecordings()
}

// Session returns the id of the most recently seen session and the number of sessions seen.
func (s *Service) Session() (uid uint64, count uint64) {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	return s.sessionUID, s.sessionCount
}

func (s *Service) trackSession(raw []byte) {
	header, err := f1.DecodeHeader(raw)

	if err != nil {
		return
	}

	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	if header.SessionUID != s.sessionUID || s.sessionCount == 0 {
		s.sessionUID = header.SessionUID
		s.sessionCount++
		s.formatWarned = false

		s.metrics.SessionStarted()
		s.logger.WithField("session", fmt.Sprintf("%016x", header.SessionUID)).Infof("New session (game version %d.%02d)", header.GameMajorVersion, header.GameMinorVersion)
	}

	if expected := s.config.Listener.PacketFormat; expected != 0 && header.PacketFormat != expected && !s.formatWarned {
		s.formatWarned = true

		s.logger.Warnf("Received packet format %d but expected %d, decoded data may be wrong. Check the game's UDP format setting", header.PacketFormat, expected)
	}
}

// Close stops any active recording and ends every subscription.
func (s *Service) Close() error {
	var err error

	if s.ActiveRecording() != nil {
		_, err = s.StopRecording()

		if errors.Is(err, ErrNoRecordingActive) {
			err = nil
		}
	}

	s.hub.Close()

	return err
}
