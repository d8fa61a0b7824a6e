package telemetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/telemetry/internal/catalog"
	"justapengu.in/telemetry/internal/metrics"
	"justapengu.in/telemetry/internal/tail"
	"justapengu.in/telemetry/internal/transport"
	"justapengu.in/telemetry/pkg/f1"
)

func testLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	return logger
}

func testPacket(format uint16, session uint64, frame uint32) []byte {
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
		PacketFormat:     format,
		GameMajorVersion: 1,
		GameMinorVersion: 18,
		PacketID:         uint8(f1.PacketTypeLobbyInfo),
		SessionUID:       session,
		FrameIdentifier:  frame,
	})

	return buf.Bytes()
}

func testPackets(n int) [][]byte {
	packets := make([][]byte, n)

	for i := range packets {
		packets[i] = testPacket(2020, 0xfeed, uint32(i))
	}

	return packets
}

func testConfig(t *testing.T) *Config {
	config := DefaultConfig()
	config.Capture.Directory = filepath.Join(t.TempDir(), "captures")
	config.TailSize = 4

	return config
}

func drain(s *transport.Subscription) []uint32 {
	var frames []uint32

	for {
		select {
		case packet, ok := <-s.Packets():
			if !ok {
				return frames
			}

			frames = append(frames, packet.Header.FrameIdentifier)
		default:
			return frames
		}
	}
}

func TestServiceReplayPacketList(t *testing.T) {
	s := NewService(testConfig(t), nil, metrics.New(), testLogger())
	defer s.Close()

	sub := s.Subscribe(100)

	if err := s.Run(context.Background(), PacketListSource{Packets: testPackets(10)}); err != nil {
		t.Fatal(err)
	}

	frames := drain(sub)

	if len(frames) != 10 {
		t.Fatalf("expected 10 decoded packets, got %d", len(frames))
	}

	for i, frame := range frames {
		if frame != uint32(i) {
			t.Errorf("expected packets in order, got %v", frames)
			break
		}
	}

	snapshot := s.TailSnapshot()

	if len(snapshot) != 4 {
		t.Fatalf("expected the tail to hold 4 packets, got %d", len(snapshot))
	}

	if !bytes.Equal(snapshot[0], testPacket(2020, 0xfeed, 6)) || !bytes.Equal(snapshot[3], testPacket(2020, 0xfeed, 9)) {
		t.Error("expected the tail to hold the last packets oldest first")
	}
}

func TestServiceRecording(t *testing.T) {
	config := testConfig(t)

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))

	if err != nil {
		t.Fatal(err)
	}

	defer store.Close()

	s := NewService(config, store, nil, testLogger())
	defer s.Close()

	if _, err := s.StopRecording(); !errors.Is(err, ErrNoRecordingActive) {
		t.Errorf("expected ErrNoRecordingActive, got %v", err)
	}

	rec, err := s.StartRecording()

	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.StartRecording(); !errors.Is(err, ErrRecordingActive) {
		t.Errorf("expected ErrRecordingActive, got %v", err)
	}

	if s.ActiveRecording() != rec {
		t.Error("expected the recording to be active")
	}

	if err := s.Run(context.Background(), PacketListSource{Packets: testPackets(50)}); err != nil {
		t.Fatal(err)
	}

	frames, err := s.StopRecording()

	if err != nil {
		t.Fatal(err)
	}

	if frames != 50 {
		t.Errorf("expected 50 frames, got %d", frames)
	}

	if s.ActiveRecording() != nil {
		t.Error("expected no active recording")
	}

	recordings, err := s.Recordings()

	if err != nil {
		t.Fatal(err)
	}

	if len(recordings) != 1 || recordings[0].ID != rec.ID() || recordings[0].Frames != 50 || recordings[0].InProgress() {
		t.Errorf("unexpected catalog contents %+v", recordings)
	}

	// packets after the recording stopped are not captured
	if err := s.Run(context.Background(), PacketListSource{Packets: testPackets(5)}); err != nil {
		t.Fatal(err)
	}

	replay := NewService(testConfig(t), nil, nil, testLogger())
	defer replay.Close()

	sub := replay.Subscribe(100)

	if err := replay.Run(context.Background(), CaptureSource{Path: rec.Path()}); err != nil {
		t.Fatal(err)
	}

	if got := drain(sub); len(got) != 50 {
		t.Errorf("expected 50 replayed packets, got %d", len(got))
	}
}

func TestServiceReportSource(t *testing.T) {
	data, err := tail.Marshal(testPackets(3))

	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), tail.LastPacketsFile)

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	config := testConfig(t)
	config.Replay.ReportIntervalMillis = 50

	s := NewService(config, nil, nil, testLogger())
	defer s.Close()

	sub := s.Subscribe(10)

	start := time.Now()

	if err := s.Run(context.Background(), ReportSource{Path: path, Pacing: true}); err != nil {
		t.Fatal(err)
	}

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("expected paced report replay to take at least 100ms, took %s", elapsed)
	}

	if got := drain(sub); len(got) != 3 {
		t.Errorf("expected 3 packets, got %v", got)
	}

	if err := s.Run(context.Background(), ReportSource{Path: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected an error for a missing report")
	}
}

func TestServiceCancellation(t *testing.T) {
	s := NewService(testConfig(t), nil, nil, testLogger())
	defer s.Close()

	ctx, cfn := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, PacketListSource{Packets: testPackets(100), Pacing: true, Interval: time.Minute})
	}()

	time.Sleep(50 * time.Millisecond)
	cfn()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected cancellation to end the replay cleanly, got %s", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("replay was not cancelled")
	}
}

func TestServiceSessions(t *testing.T) {
	s := NewService(testConfig(t), nil, nil, testLogger())
	defer s.Close()

	packets := [][]byte{
		testPacket(2020, 1, 0),
		testPacket(2020, 1, 1),
		testPacket(2019, 1, 2),
		testPacket(2020, 2, 0),
		{0x01},
	}

	if err := s.Run(context.Background(), PacketListSource{Packets: packets}); err != nil {
		t.Fatal(err)
	}

	uid, count := s.Session()

	if uid != 2 || count != 2 {
		t.Errorf("expected 2 sessions ending with session 2, got %d sessions ending with %d", count, uid)
	}

	if s.formatWarned {
		t.Error("expected the format warning to reset with the new session")
	}
}

func TestServiceSubscribeLatest(t *testing.T) {
	config := testConfig(t)
	config.Listener.SubscriberBuffer = 2

	s := NewService(config, nil, nil, testLogger())

	latest := s.SubscribeLatest(0)

	if err := s.Run(context.Background(), PacketListSource{Packets: testPackets(10)}); err != nil {
		t.Fatal(err)
	}

	if got := drain(latest); len(got) != 2 || got[0] != 8 || got[1] != 9 {
		t.Errorf("expected the latest 2 packets, got %v", got)
	}

	if latest.Dropped() != 8 {
		t.Errorf("expected 8 dropped packets, got %d", latest.Dropped())
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, ok := <-latest.Packets(); ok {
		t.Error("expected subscriptions to close with the service")
	}
}
