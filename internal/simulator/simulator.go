// Package simulator provides an in-process stand-in for the camera
// producer and for the pose model, so the full relay can run with no
// external processes attached. Frames carry a moving synthetic figure
// and the estimator replays a deterministic swinging pose.
package simulator

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"pose-relay-go/internal/codec"
	"pose-relay-go/internal/pose"
	"pose-relay-go/internal/transport"
	"pose-relay-go/internal/types"
)

// Source generates synthetic camera frames at a fixed rate and exposes
// them through the transport.FrameSource interface.
type Source struct {
	frames  <-chan types.RawMessage
	pending *types.RawMessage
}

var _ transport.FrameSource = (*Source)(nil)

// Stream starts a generator producing width x height frames at acqRate
// frames per second until ctx is cancelled.
func Stream(ctx context.Context, width, height int, acqRate float64) *Source {
	if acqRate <= 0 {
		acqRate = 1
	}
	out := make(chan types.RawMessage, 16)
	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Duration(float64(time.Second) / acqRate))
		defer ticker.Stop()

		seq := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg, err := synthFrame(width, height, seq)
				if err != nil {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- msg:
					seq++
				default:
					// Consumer is behind; drop, like a real camera feed.
				}
			}
		}
	}()
	return &Source{frames: out}
}

func (s *Source) Poll(timeout time.Duration) (bool, error) {
	if s.pending != nil {
		return true, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-s.frames:
		if !ok {
			return false, transport.ErrClosed
		}
		s.pending = &msg
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

func (s *Source) Recv() (types.RawMessage, bool, error) {
	if s.pending != nil {
		msg := *s.pending
		s.pending = nil
		return msg, true, nil
	}
	msg, ok := <-s.frames
	if !ok {
		return types.RawMessage{}, false, transport.ErrClosed
	}
	return msg, true, nil
}

func (s *Source) Close() error {
	return nil
}

// synthFrame renders a gradient background with a bright figure whose
// position follows the simulated pose, then encodes it like a camera
// would.
func synthFrame(width, height, seq int) (types.RawMessage, error) {
	buf := types.NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Set(x, y, byte(40+40*y/height), byte(40+40*x/width), 60)
		}
	}
	set := poseAt(seq)
	for _, lm := range set {
		cx := int(lm.X * float32(width))
		cy := int(lm.Y * float32(height))
		for dy := -3; dy <= 3; dy++ {
			for dx := -3; dx <= 3; dx++ {
				buf.Set(cx+dx, cy+dy, 220, 220, 220)
			}
		}
	}

	payload, err := codec.Encode(buf, 80)
	if err != nil {
		return types.RawMessage{}, err
	}
	meta, err := json.Marshal(map[string]any{
		"seq": seq,
		"ts":  float64(time.Now().UnixNano()) / 1e9,
	})
	if err != nil {
		return types.RawMessage{}, err
	}
	return types.RawMessage{Meta: meta, Payload: payload}, nil
}

// Estimator returns a deterministic model stand-in producing the same
// swinging 33-landmark pose the synthetic frames are drawn from.
func Estimator() pose.Estimator {
	calls := 0
	return pose.EstimatorFunc(func(context.Context, *types.PixelBuffer) (types.LandmarkSet, error) {
		set := poseAt(calls)
		calls++
		return set, nil
	})
}

// poseAt builds the full-body topology for simulation step n: a
// standing figure with arms swinging on a sine phase.
func poseAt(n int) types.LandmarkSet {
	phase := float32(math.Sin(float64(n) / 10.0))
	set := make(types.LandmarkSet, pose.NumLandmarks)

	put := func(i int, x, y, z float32) {
		set[i] = types.Landmark{X: x, Y: y, Z: z, Visibility: 0.95}
	}

	// Head cluster.
	put(0, 0.50, 0.15, 0)
	for i := 1; i <= 3; i++ {
		put(i, 0.50-0.02*float32(i), 0.13, 0)
	}
	for i := 4; i <= 6; i++ {
		put(i, 0.50+0.02*float32(i-3), 0.13, 0)
	}
	put(7, 0.44, 0.15, 0)
	put(8, 0.56, 0.15, 0)
	put(9, 0.48, 0.19, 0)
	put(10, 0.52, 0.19, 0)

	// Torso.
	put(11, 0.42, 0.30, 0)
	put(12, 0.58, 0.30, 0)
	put(23, 0.45, 0.58, 0)
	put(24, 0.55, 0.58, 0)

	// Arms swing with the phase.
	put(13, 0.36, 0.42+0.04*phase, -0.05)
	put(14, 0.64, 0.42-0.04*phase, -0.05)
	put(15, 0.33, 0.54+0.08*phase, -0.10)
	put(16, 0.67, 0.54-0.08*phase, -0.10)
	for i := 17; i <= 21; i += 2 {
		put(i, 0.32, 0.57+0.08*phase, -0.12)
	}
	for i := 18; i <= 22; i += 2 {
		put(i, 0.68, 0.57-0.08*phase, -0.12)
	}

	// Legs.
	put(25, 0.44, 0.74, 0)
	put(26, 0.56, 0.74, 0)
	put(27, 0.44, 0.88, 0)
	put(28, 0.56, 0.88, 0)
	put(29, 0.43, 0.92, 0)
	put(30, 0.57, 0.92, 0)
	put(31, 0.46, 0.94, 0)
	put(32, 0.54, 0.94, 0)

	return set
}
