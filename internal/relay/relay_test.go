package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"pose-relay-go/internal/codec"
	"pose-relay-go/internal/pose"
	"pose-relay-go/internal/types"
)

type fakeSource struct {
	queue []fakeItem
}

type fakeItem struct {
	msg types.RawMessage
	ok  bool
}

func (f *fakeSource) Poll(time.Duration) (bool, error) {
	return len(f.queue) > 0, nil
}

func (f *fakeSource) Recv() (types.RawMessage, bool, error) {
	if len(f.queue) == 0 {
		return types.RawMessage{}, false, errors.New("recv on empty fake source")
	}
	item := f.queue[0]
	f.queue = f.queue[1:]
	return item.msg, item.ok, nil
}

func (f *fakeSource) Close() error { return nil }

type published struct {
	meta    []byte
	payload []byte
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeSink) Publish(meta, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{
		meta:    append([]byte(nil), meta...),
		payload: append([]byte(nil), payload...),
	})
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func (f *fakeSink) at(i int) published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[i]
}

func jpegFrame(t *testing.T, width, height int) []byte {
	t.Helper()
	buf := types.NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Set(x, y, byte(x), byte(y), byte(x+y))
		}
	}
	data, err := codec.Encode(buf, 90)
	if err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return data
}

func frameMsg(t *testing.T, meta string, width, height int) types.RawMessage {
	t.Helper()
	return types.RawMessage{Meta: []byte(meta), Payload: jpegFrame(t, width, height)}
}

func TestProcessPublishesPreviewAndPose(t *testing.T) {
	landmarks := types.LandmarkSet{
		{X: 0.1, Y: 0.2, Z: 0.3, Visibility: 0.9},
		{X: 0.4, Y: 0.5, Z: 0.6, Visibility: 0.8},
		{X: 0.7, Y: 0.8, Z: 0.9, Visibility: 0.7},
	}
	preview := &fakeSink{}
	poseSink := &fakeSink{}
	fixed := time.Unix(1700000000, 500000000)
	r := New(&fakeSource{}, preview, poseSink, pose.NewStub(landmarks), Options{
		Now: func() time.Time { return fixed },
	})

	msg := frameMsg(t, `{"seq":1}`, 640, 480)
	if err := r.process(context.Background(), msg); err != nil {
		t.Fatalf("process error: %v", err)
	}

	if preview.count() != 1 {
		t.Fatalf("expected 1 preview, got %d", preview.count())
	}
	var previewMeta types.PreviewMeta
	if err := json.Unmarshal(preview.at(0).meta, &previewMeta); err != nil {
		t.Fatalf("decode preview meta: %v", err)
	}
	if previewMeta.W != 640 || previewMeta.H != 480 {
		t.Fatalf("unexpected preview dimensions: %dx%d", previewMeta.W, previewMeta.H)
	}
	wantTS := float64(fixed.UnixNano()) / 1e9
	if math.Abs(previewMeta.TS-wantTS) > 1e-6 {
		t.Fatalf("unexpected preview ts: %v", previewMeta.TS)
	}

	if poseSink.count() != 1 {
		t.Fatalf("expected 1 pose message, got %d", poseSink.count())
	}
	var poseMeta types.PoseMeta
	if err := json.Unmarshal(poseSink.at(0).meta, &poseMeta); err != nil {
		t.Fatalf("decode pose meta: %v", err)
	}
	if poseMeta.Count != 3 {
		t.Fatalf("unexpected pose count: %d", poseMeta.Count)
	}
	payload := poseSink.at(0).payload
	if len(payload) != 4*3*4 {
		t.Fatalf("unexpected pose payload length: %d", len(payload))
	}
	decoded, err := types.DecodeLandmarks(payload)
	if err != nil {
		t.Fatalf("decode pose payload: %v", err)
	}
	wantVis := []float32{0.9, 0.8, 0.7}
	for i, lm := range decoded {
		if lm != landmarks[i] {
			t.Fatalf("landmark %d = %+v, want %+v", i, lm, landmarks[i])
		}
		if math.Abs(float64(lm.Visibility-wantVis[i])) > 1e-6 {
			t.Fatalf("visibility %d = %v", i, lm.Visibility)
		}
	}
}

func TestProcessEmptyPoseSkipsPoseChannel(t *testing.T) {
	preview := &fakeSink{}
	poseSink := &fakeSink{}
	r := New(&fakeSource{}, preview, poseSink, pose.Disabled(), Options{JPEGQuality: 70})

	msg := frameMsg(t, "meta", 32, 24)
	if err := r.process(context.Background(), msg); err != nil {
		t.Fatalf("process error: %v", err)
	}

	if poseSink.count() != 0 {
		t.Fatalf("pose message published for empty landmark set")
	}
	if preview.count() != 1 {
		t.Fatalf("expected 1 preview, got %d", preview.count())
	}

	// With no landmarks the preview must be the undecorated frame.
	decoded, ok := codec.Decode(msg.Payload)
	if !ok {
		t.Fatal("decode test frame")
	}
	want, err := codec.Encode(decoded, 70)
	if err != nil {
		t.Fatalf("encode reference: %v", err)
	}
	if !bytes.Equal(preview.at(0).payload, want) {
		t.Fatal("preview payload differs from undecorated encoding")
	}
}

func TestProcessDecodeFailureIsRecoverable(t *testing.T) {
	preview := &fakeSink{}
	poseSink := &fakeSink{}
	r := New(&fakeSource{}, preview, poseSink, pose.Disabled(), Options{})

	for _, payload := range [][]byte{nil, {0xde, 0xad, 0xbe, 0xef}} {
		err := r.process(context.Background(), types.RawMessage{Meta: []byte("m"), Payload: payload})
		if err != nil {
			t.Fatalf("decode failure must not be fatal: %v", err)
		}
	}
	if preview.count() != 0 || poseSink.count() != 0 {
		t.Fatal("no message should be published for undecodable frames")
	}
	if got := r.Metrics().decodeFailures.Load(); got != 2 {
		t.Fatalf("decode failure count = %d, want 2", got)
	}

	// A following valid frame still goes through.
	if err := r.process(context.Background(), frameMsg(t, "m", 16, 16)); err != nil {
		t.Fatalf("valid frame after failures: %v", err)
	}
	if preview.count() != 1 {
		t.Fatalf("expected 1 preview after recovery, got %d", preview.count())
	}
}

func TestProcessFatalOnPublishError(t *testing.T) {
	preview := &fakeSink{err: errors.New("socket gone")}
	r := New(&fakeSource{}, preview, &fakeSink{}, pose.Disabled(), Options{})

	err := r.process(context.Background(), frameMsg(t, "m", 16, 16))
	if err == nil {
		t.Fatal("expected fatal error on publish failure")
	}
}

func TestRunPreservesReceiptOrder(t *testing.T) {
	source := &fakeSource{queue: []fakeItem{
		{msg: frameMsg(t, "a", 8, 8), ok: true},
		{msg: frameMsg(t, "b", 9, 9), ok: true},
		{msg: frameMsg(t, "c", 10, 10), ok: true},
	}}
	preview := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(source, preview, &fakeSink{}, pose.Disabled(), Options{
		PollTimeout:  time.Millisecond,
		DrainBacklog: false,
		OnPreview: func(types.PreviewMeta, []byte) {
			if preview.count() == 3 {
				cancel()
			}
		},
	})
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}

	if preview.count() != 3 {
		t.Fatalf("expected 3 previews, got %d", preview.count())
	}
	for i, wantW := range []int{8, 9, 10} {
		var meta types.PreviewMeta
		if err := json.Unmarshal(preview.at(i).meta, &meta); err != nil {
			t.Fatalf("decode meta %d: %v", i, err)
		}
		if meta.W != wantW {
			t.Fatalf("preview %d width = %d, want %d (order violated)", i, meta.W, wantW)
		}
	}
}

func TestRunDrainsBacklogToNewest(t *testing.T) {
	source := &fakeSource{queue: []fakeItem{
		{msg: frameMsg(t, "old", 8, 8), ok: true},
		{msg: frameMsg(t, "older", 9, 9), ok: true},
		{msg: frameMsg(t, "newest", 10, 10), ok: true},
	}}
	preview := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(source, preview, &fakeSink{}, pose.Disabled(), Options{
		PollTimeout:  time.Millisecond,
		DrainBacklog: true,
		OnPreview: func(types.PreviewMeta, []byte) {
			cancel()
		},
	})
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}

	if preview.count() != 1 {
		t.Fatalf("expected only the newest frame, got %d previews", preview.count())
	}
	var meta types.PreviewMeta
	if err := json.Unmarshal(preview.at(0).meta, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.W != 10 {
		t.Fatalf("processed width %d, want newest (10)", meta.W)
	}
	if got := r.Metrics().backlogDropped.Load(); got != 2 {
		t.Fatalf("backlog dropped = %d, want 2", got)
	}
}

func TestRunSkipsMalformedMessages(t *testing.T) {
	source := &fakeSource{queue: []fakeItem{
		{ok: false},
		{msg: frameMsg(t, "valid", 12, 12), ok: true},
	}}
	preview := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(source, preview, &fakeSink{}, pose.Disabled(), Options{
		PollTimeout: time.Millisecond,
		OnPreview: func(types.PreviewMeta, []byte) {
			cancel()
		},
	})
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}

	if preview.count() != 1 {
		t.Fatalf("expected valid frame to be processed, got %d previews", preview.count())
	}
	if got := r.Metrics().badMessages.Load(); got != 1 {
		t.Fatalf("bad message count = %d, want 1", got)
	}
}

func TestRunRecordsInboundMessages(t *testing.T) {
	source := &fakeSource{queue: []fakeItem{
		{msg: frameMsg(t, "first", 8, 8), ok: true},
		{msg: frameMsg(t, "second", 9, 9), ok: true},
	}}
	var recorded [][]byte
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	preview := &fakeSink{}
	r := New(source, preview, &fakeSink{}, pose.Disabled(), Options{
		PollTimeout:  time.Millisecond,
		DrainBacklog: true,
		OnInbound: func(msg types.RawMessage) {
			recorded = append(recorded, append([]byte(nil), msg.Meta...))
		},
		OnPreview: func(types.PreviewMeta, []byte) {
			cancel()
		},
	})
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}

	// Both frames are recorded even though draining dropped the first.
	if len(recorded) != 2 {
		t.Fatalf("recorded %d messages, want 2", len(recorded))
	}
	if string(recorded[0]) != "first" || string(recorded[1]) != "second" {
		t.Fatalf("unexpected recorded metas: %q %q", recorded[0], recorded[1])
	}
}
