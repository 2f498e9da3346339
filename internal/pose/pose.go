// Package pose is the boundary to the pose-estimation stage. The model
// itself is an external collaborator: the relay only depends on the
// Estimator interface, so the pipeline and framing protocol can run
// against a deterministic stub with no model attached.
package pose

import (
	"context"

	"pose-relay-go/internal/types"
)

// Estimator turns one RGB pixel buffer into zero or one landmark set.
// An empty set means no pose was found, which is a normal per-frame
// outcome, not an error. Errors are model failures and are fatal to the
// relay. Any temporal smoothing or tracking continuity is internal to
// the implementation; callers treat each call as independent.
type Estimator interface {
	Estimate(ctx context.Context, frame *types.PixelBuffer) (types.LandmarkSet, error)
}

// EstimatorFunc adapts a plain function to the Estimator interface.
type EstimatorFunc func(ctx context.Context, frame *types.PixelBuffer) (types.LandmarkSet, error)

func (f EstimatorFunc) Estimate(ctx context.Context, frame *types.PixelBuffer) (types.LandmarkSet, error) {
	return f(ctx, frame)
}

// Disabled returns an estimator that never finds a pose. It is the
// default backend when no model is wired in: the relay still republishes
// every decoded frame on the preview channel.
func Disabled() Estimator {
	return EstimatorFunc(func(context.Context, *types.PixelBuffer) (types.LandmarkSet, error) {
		return nil, nil
	})
}

// Stub replays a fixed script of landmark sets, cycling when exhausted.
// A nil entry in the script means "no pose on that frame".
type Stub struct {
	Script []types.LandmarkSet
	calls  int
}

func NewStub(script ...types.LandmarkSet) *Stub {
	return &Stub{Script: script}
}

func (s *Stub) Estimate(_ context.Context, _ *types.PixelBuffer) (types.LandmarkSet, error) {
	if len(s.Script) == 0 {
		return nil, nil
	}
	set := s.Script[s.calls%len(s.Script)]
	s.calls++
	return set, nil
}
