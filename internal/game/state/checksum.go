package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ChecksumVersion is bumped whenever the canonical encoding changes.
const ChecksumVersion = 1

// Checksum is a deterministic digest of a game state. Two states with the same
// checksum are interchangeable for replay purposes.
type Checksum struct {
	Hash    string `json:"hash"`
	Version int    `json:"version"`
}

// ComputeChecksum hashes the canonical encoding of the state. The state is
// cloned first so nil and empty slices encode the same way.
func ComputeChecksum(s GameState) (Checksum, error) {
	canonical := s.Clone()
	data, err := json.Marshal(canonical)
	if err != nil {
		return Checksum{}, fmt.Errorf("failed to encode state: %w", err)
	}
	sum := sha256.Sum256(data)
	return Checksum{Hash: hex.EncodeToString(sum[:]), Version: ChecksumVersion}, nil
}

// Equal reports whether two checksums match.
func (c Checksum) Equal(other Checksum) bool {
	return c.Version == other.Version && c.Hash == other.Hash
}
