package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/mattjoyce/msgcluster/internal/cluster"
)

// Digest returns the hex BLAKE3 hash of w's canonical JSON form: the record
// as it reads back after a JSON round trip. Struct payloads and their decoded
// maps hash equally, as do whole floats and ints.
func Digest(w cluster.Wrapped) (string, error) {
	data, err := canonicalJSON(w)
	if err != nil {
		return "", err
	}
	return DigestBytes(data), nil
}

func canonicalJSON(w cluster.Wrapped) ([]byte, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var decoded cluster.Wrapped
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	normalize(&decoded)
	data, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// DigestBytes returns the hex BLAKE3 hash of data.
func DigestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
