package monitor

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"pose-relay-go/internal/types"
)

func TestHandleStatus(t *testing.T) {
	srv := New(9999, func() map[string]any {
		return map[string]any{"frames_received_total": uint64(42)}
	}, nil)
	srv.UpdatePreview(types.PreviewMeta{W: 640, H: 480, TS: 1.5}, []byte{0xff, 0xd8})

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["frames_received_total"].(float64) != 42 {
		t.Fatalf("unexpected frames_received_total: %v", payload["frames_received_total"])
	}
	if payload["preview_w"].(float64) != 640 {
		t.Fatalf("unexpected preview_w: %v", payload["preview_w"])
	}
	if payload["ws_clients"].(float64) != 0 {
		t.Fatalf("unexpected ws_clients: %v", payload["ws_clients"])
	}
}

func TestHandleConfig(t *testing.T) {
	srv := New(9999, nil, func() map[string]any {
		return map[string]any{"camera": "tcp://127.0.0.1:6000", "jpeg_quality": 70}
	})

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["camera"] != "tcp://127.0.0.1:6000" {
		t.Fatalf("unexpected camera: %v", payload["camera"])
	}
}

func TestHandlePreview(t *testing.T) {
	srv := New(9999, nil, nil)

	rec := httptest.NewRecorder()
	srv.handlePreview(rec, httptest.NewRequest("GET", "/preview", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 before first frame, got %d", rec.Code)
	}

	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}
	srv.UpdatePreview(types.PreviewMeta{W: 2, H: 2, TS: 1}, jpeg)

	rec = httptest.NewRecorder()
	srv.handlePreview(rec, httptest.NewRequest("GET", "/preview", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected content type: %s", rec.Header().Get("Content-Type"))
	}
	if got := rec.Body.Bytes(); len(got) != len(jpeg) {
		t.Fatalf("unexpected body length: %d", len(got))
	}
}
