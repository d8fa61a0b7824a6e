package telemetry

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"

	"justapengu.in/telemetry/internal/capture"
	"justapengu.in/telemetry/internal/tail"
	"justapengu.in/telemetry/internal/transport"
)

// Source is where raw packets come from: the live socket or one of the replay sources.
type Source interface {
	run(ctx context.Context, s *Service) error
}

// LiveSource receives packets from the game on a UDP port.
type LiveSource struct {
	Port uint16
}

func (l LiveSource) run(ctx context.Context, s *Service) error {
	return transport.NewListener(l.Port, s.dispatcher, s.logger).Listen(ctx)
}

// CaptureSource replays a capture file.
type CaptureSource struct {
	Path   string
	Pacing bool
}

func (c CaptureSource) run(ctx context.Context, s *Service) error {
	stream, err := capture.Open(c.Path)

	if err != nil {
		return err
	}

	s.logger.Infof("Replaying capture: %s", c.Path)

	return s.play(ctx, stream, c.Pacing)
}

// PacketListSource replays a list of packets, Interval apart when paced. A zero Interval uses
// the configured report interval.
type PacketListSource struct {
	Packets  [][]byte
	Pacing   bool
	Interval time.Duration
}

func (p PacketListSource) run(ctx context.Context, s *Service) error {
	interval := p.Interval

	if interval <= 0 {
		interval = s.config.ReportInterval()
	}

	return s.play(ctx, capture.NewPacketList(p.Packets, interval.Milliseconds()), p.Pacing)
}

// ReportSource replays the packets attached to a crash report: a JSON array of base64 encoded
// packets.
type ReportSource struct {
	Path   string
	Pacing bool
}

func (r ReportSource) run(ctx context.Context, s *Service) error {
	data, err := ioutil.ReadFile(r.Path)

	if err != nil {
		return errors.Wrap(err, "telemetry: could not read report")
	}

	packets, err := tail.Unmarshal(data)

	if err != nil {
		return err
	}

	s.logger.Infof("Replaying %d packets from report: %s", len(packets), r.Path)

	return PacketListSource{Packets: packets, Pacing: r.Pacing}.run(ctx, s)
}

// Run feeds packets from src through the pipeline until the source is exhausted, ctx is
// cancelled or the source fails. The end of a replay and cancellation both return nil.
func (s *Service) Run(ctx context.Context, src Source) error {
	err := src.run(ctx, s)

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (s *Service) play(ctx context.Context, src capture.FrameSource, pacing bool) error {
	played, err := capture.NewPlayer(s.logger, pacing).Play(ctx, src, s.dispatcher)

	if err != nil {
		return err
	}

	s.logger.Infof("Replay finished after %d packets", played)

	return nil
}
