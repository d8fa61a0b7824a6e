package capture

import (
	"context"
	"time"
)

// Player emits the frames of a FrameSource, optionally reproducing the recorded gaps between
// them.
type Player struct {
	logger Logger
	pacing bool
}

func NewPlayer(logger Logger, pacing bool) *Player {
	return &Player{
		logger: logger,
		pacing: pacing,
	}
}

// Play passes every frame of src to handler in order and returns the number of frames played.
// The end of the source is not an error. Cancelling ctx stops playback and returns ctx.Err().
// src is closed before Play returns.
//
// With pacing, each frame after the first waits for the difference between its timestamp and
// the previous frame's timestamp before it is emitted.
func (p *Player) Play(ctx context.Context, src FrameSource, handler PacketHandler) (played uint64, err error) {
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			p.logger.WithError(closeErr).Warn("Could not close replay source")
		}

		if stream, ok := src.(*Stream); ok && stream.Err() != nil {
			p.logger.WithError(stream.Err()).Debugf("Replay stream ended early after %d frames", stream.Count())
		}

		p.logger.Debugf("Replay played %d frames", played)
	}()

	var (
		previous int64
		first    = true
	)

	for {
		if err := ctx.Err(); err != nil {
			return played, err
		}

		frame, ok := src.Next()

		if !ok {
			return played, nil
		}

		if p.pacing {
			if !first {
				if err := sleep(ctx, time.Duration(frame.Timestamp-previous)*time.Millisecond); err != nil {
					return played, err
				}
			}

			previous = frame.Timestamp
			first = false
		}

		handler.OnPacket(frame.Data)
		played++
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
