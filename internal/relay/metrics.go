package relay

import "sync/atomic"

// Metrics counts per-frame outcomes of the relay loop. All fields are
// updated by the single loop goroutine and read concurrently by the
// monitor.
type Metrics struct {
	framesReceived    atomic.Uint64
	badMessages       atomic.Uint64
	backlogDropped    atomic.Uint64
	decodeFailures    atomic.Uint64
	framesDecoded     atomic.Uint64
	posesFound        atomic.Uint64
	previewsPublished atomic.Uint64
	posesPublished    atomic.Uint64
}

func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"frames_received_total":    m.framesReceived.Load(),
		"bad_messages_total":       m.badMessages.Load(),
		"backlog_dropped_total":    m.backlogDropped.Load(),
		"decode_failures_total":    m.decodeFailures.Load(),
		"frames_decoded_total":     m.framesDecoded.Load(),
		"poses_found_total":        m.posesFound.Load(),
		"previews_published_total": m.previewsPublished.Load(),
		"poses_published_total":    m.posesPublished.Load(),
	}
}
