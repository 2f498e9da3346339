package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pose-relay-go/internal/types"
)

func TestRawLogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewRawLogWriter(dir)
	require.NoError(t, err)

	messages := []types.RawMessage{
		{Meta: []byte(`{"seq":0}`), Payload: []byte{0xff, 0xd8, 0x01}},
		{Meta: []byte(`{"seq":1}`), Payload: []byte{0xff, 0xd8, 0x02, 0x03}},
	}
	for _, msg := range messages {
		require.NoError(t, writer.Record(msg))
	}
	require.NoError(t, writer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var records []Record
	err = ReadRawLog(filepath.Join(dir, entries[0].Name()), func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for i, rec := range records {
		require.Equal(t, messages[i].Meta, rec.Meta)
		require.Equal(t, messages[i].Payload, rec.Payload)
		require.NotZero(t, rec.TS)
	}
}

func TestRawLogWriterClosedRejectsRecords(t *testing.T) {
	writer, err := NewRawLogWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.Error(t, writer.Record(types.RawMessage{Meta: []byte("m"), Payload: []byte("p")}))
	// Closing twice is fine.
	require.NoError(t, writer.Close())
}

func TestReadRawLogRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOTALOG!"), 0o644))
	err := ReadRawLog(path, func(Record) error { return nil })
	require.Error(t, err)
}
