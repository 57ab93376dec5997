package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/talgya/star-market/internal/engine"
)

const snapshotVersion = 1

// encodeSnapshot returns the lz4-compressed JSON of snap and the blake3
// checksum of the uncompressed JSON.
func encodeSnapshot(snap engine.Snapshot) ([]byte, string, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), checksum(raw), nil
}

func decodeSnapshot(blob []byte, sum string) (engine.Snapshot, error) {
	var snap engine.Snapshot
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return snap, fmt.Errorf("decompress: %w", err)
	}
	if checksum(raw) != sum {
		return snap, ErrChecksum
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode: %w", err)
	}
	return snap, nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
