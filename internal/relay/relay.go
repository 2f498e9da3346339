// Package relay implements the core pump: poll the camera subscription,
// decode, estimate, annotate, encode, and fan out to the preview and
// pose channels. The loop is a single goroutine with no state carried
// between iterations beyond the open channel handles; frame N is fully
// published before frame N+1 is received, so each outbound channel sees
// frames in strict receipt order.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pose-relay-go/internal/codec"
	"pose-relay-go/internal/pose"
	"pose-relay-go/internal/transport"
	"pose-relay-go/internal/types"
)

// Options tune the loop. Zero values are replaced by the defaults the
// producer side expects.
type Options struct {
	// PollTimeout bounds the inbound wait so shutdown is observable
	// without busy-spinning.
	PollTimeout time.Duration
	// JPEGQuality is used for the preview encoding.
	JPEGQuality int
	// DrainBacklog keeps only the newest queued inbound message per
	// iteration. ZMQ does not conflate multipart messages for slow
	// subscribers, so the low-latency behaviour has to be explicit
	// on this side.
	DrainBacklog bool
	// OnInbound, when set, observes every received inbound message,
	// including ones later dropped by the drain policy. Used by the
	// raw-frame recorder.
	OnInbound func(msg types.RawMessage)
	// OnPreview, when set, observes every published preview. Used by
	// the monitor to expose the latest frame.
	OnPreview func(meta types.PreviewMeta, jpeg []byte)
	// Now is the timestamp source for preview metadata. Defaults to
	// time.Now.
	Now func() time.Time
}

const (
	defaultPollTimeout = 10 * time.Millisecond
	defaultJPEGQuality = 70
)

type Relay struct {
	source    transport.FrameSource
	preview   transport.FrameSink
	poseOut   transport.FrameSink
	estimator pose.Estimator
	opts      Options
	metrics   Metrics
}

func New(source transport.FrameSource, preview, poseOut transport.FrameSink, estimator pose.Estimator, opts Options) *Relay {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = defaultJPEGQuality
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Relay{
		source:    source,
		preview:   preview,
		poseOut:   poseOut,
		estimator: estimator,
		opts:      opts,
	}
}

func (r *Relay) Metrics() *Metrics {
	return &r.metrics
}

// Run pumps frames until ctx is cancelled (returns nil) or a fatal
// error occurs (returns it). The only recoverable per-frame failure is
// a payload that does not decode; everything else surfaces to the
// caller, which owns the sockets and closes them.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ready, err := r.source.Poll(r.opts.PollTimeout)
		if err != nil {
			return fmt.Errorf("poll inbound: %w", err)
		}
		if !ready {
			continue
		}

		msg, ok, err := r.source.Recv()
		if err != nil {
			return fmt.Errorf("receive frame: %w", err)
		}
		if !ok {
			r.metrics.badMessages.Add(1)
			log.Printf("relay: skipping malformed inbound message")
			continue
		}
		r.metrics.framesReceived.Add(1)
		if r.opts.OnInbound != nil {
			r.opts.OnInbound(msg)
		}

		if r.opts.DrainBacklog {
			msg, err = r.drainNewest(msg)
			if err != nil {
				return fmt.Errorf("drain inbound backlog: %w", err)
			}
		}

		if err := r.process(ctx, msg); err != nil {
			return err
		}
	}
}

// drainNewest consumes any backlog queued behind the message just
// received and keeps only the newest, preserving the stream's
// low-latency intent when the producer outpaces estimation.
func (r *Relay) drainNewest(current types.RawMessage) (types.RawMessage, error) {
	for {
		ready, err := r.source.Poll(0)
		if err != nil {
			return types.RawMessage{}, err
		}
		if !ready {
			return current, nil
		}
		next, ok, err := r.source.Recv()
		if err != nil {
			return types.RawMessage{}, err
		}
		if !ok {
			r.metrics.badMessages.Add(1)
			continue
		}
		r.metrics.framesReceived.Add(1)
		r.metrics.backlogDropped.Add(1)
		if r.opts.OnInbound != nil {
			r.opts.OnInbound(next)
		}
		current = next
	}
}

// process runs one frame through decode, estimate, annotate, encode and
// both publishes.
func (r *Relay) process(ctx context.Context, msg types.RawMessage) error {
	frame, ok := codec.Decode(msg.Payload)
	if !ok {
		r.metrics.decodeFailures.Add(1)
		log.Printf("relay: dropping frame with undecodable payload (%d bytes)", len(msg.Payload))
		return nil
	}
	r.metrics.framesDecoded.Add(1)

	landmarks, err := r.estimator.Estimate(ctx, frame.SwappedRB())
	if err != nil {
		return fmt.Errorf("estimate pose: %w", err)
	}
	if len(landmarks) > 0 {
		r.metrics.posesFound.Add(1)
		pose.Annotate(frame, landmarks)
	}

	jpeg, err := codec.Encode(frame, r.opts.JPEGQuality)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	meta := types.PreviewMeta{
		W:  frame.Width,
		H:  frame.Height,
		TS: float64(r.opts.Now().UnixNano()) / 1e9,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal preview meta: %w", err)
	}
	if err := r.preview.Publish(metaJSON, jpeg); err != nil {
		return fmt.Errorf("publish preview: %w", err)
	}
	r.metrics.previewsPublished.Add(1)
	if r.opts.OnPreview != nil {
		r.opts.OnPreview(meta, jpeg)
	}

	// Absence of a pose message signals "no pose found"; a message
	// with count 0 is never published.
	if len(landmarks) == 0 {
		return nil
	}
	poseJSON, err := json.Marshal(types.PoseMeta{Count: len(landmarks)})
	if err != nil {
		return fmt.Errorf("marshal pose meta: %w", err)
	}
	if err := r.poseOut.Publish(poseJSON, types.EncodeFloats(landmarks.Flatten())); err != nil {
		return fmt.Errorf("publish pose: %w", err)
	}
	r.metrics.posesPublished.Add(1)
	return nil
}
