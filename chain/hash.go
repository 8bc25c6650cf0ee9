package chain

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// IdentityDigest hashes a raw external identifier into the 32-byte digest
// stored locally and on the registry contract. The raw identifier itself is
// never persisted.
func IdentityDigest(rawID string) [32]byte {
	var out [32]byte
	copy(out[:], keccak256([]byte(rawID)))
	return out
}

// HashIdentity renders IdentityDigest as a 0x-prefixed 64-hex-digit string.
func HashIdentity(rawID string) string {
	digest := IdentityDigest(rawID)
	return "0x" + hex.EncodeToString(digest[:])
}

// ComputeCommitHash builds the commit-reveal commitment
// keccak256(uint256 candidateId ‖ bytes32 secret), solidity-packed.
func ComputeCommitHash(candidateID uint64, secret [32]byte) string {
	packed := common.LeftPadBytes(new(big.Int).SetUint64(candidateID).Bytes(), 32)
	return "0x" + hex.EncodeToString(keccak256(packed, secret[:]))
}

// ParseHash32 decodes a 0x-prefixed (or bare) 64-hex-digit string into a
// 32-byte value.
func ParseHash32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, errors.Wrap(err, "invalid hex digest")
	}
	if len(raw) != 32 {
		return out, errors.Errorf("digest must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
