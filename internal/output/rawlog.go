// Package output holds the flag-gated raw-frame recorder: every inbound
// message can be appended to a timestamped log file as a CBOR record for
// offline replay and inspection. Disabled by default; the relay writes
// no files in its normal configuration.
package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"pose-relay-go/internal/types"
)

const rawLogMagic = "POSERAW1"

// Record is one logged inbound message.
type Record struct {
	TS      int64  `cbor:"ts"`
	Meta    []byte `cbor:"meta"`
	Payload []byte `cbor:"payload"`
}

type RawLogWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func NewRawLogWriter(dir string) (*RawLogWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("%s_frames.bin", timestamp))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(rawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{f: f, w: w}, nil
}

// Record appends one inbound message. Each record is a length-prefixed
// CBOR blob so a truncated tail never corrupts earlier records.
func (r *RawLogWriter) Record(msg types.RawMessage) error {
	blob, err := cbor.Marshal(Record{
		TS:      time.Now().UnixNano(),
		Meta:    msg.Meta,
		Payload: msg.Payload,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(blob)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(blob); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

// ReadRawLog streams records from a raw log file, invoking fn for each.
// A truncated final record ends the stream without error.
func ReadRawLog(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(rawLogMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != rawLogMagic {
		return fmt.Errorf("unexpected raw log magic %q", string(magic))
	}

	for {
		var header [4]byte
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("read record header: %w", err)
		}
		size := binary.LittleEndian.Uint32(header[:])
		blob := make([]byte, size)
		if _, err := io.ReadFull(f, blob); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("read record payload: %w", err)
		}
		var rec Record
		if err := cbor.Unmarshal(blob, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
