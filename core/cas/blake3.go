package cas

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashResult contains both SHA-256 and BLAKE3 hashes for a piece of content.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Equal reports whether both digests match.
func (h HashResult) Equal(other HashResult) bool {
	return h.SHA256 == other.SHA256 && h.BLAKE3 == other.BLAKE3
}

// Short returns a 12-character prefix of the BLAKE3 digest for log lines.
func (h HashResult) Short() string {
	if len(h.BLAKE3) < 12 {
		return h.BLAKE3
	}
	return h.BLAKE3[:12]
}

// Sum computes both digests of data.
func Sum(data []byte) HashResult {
	return HashResult{
		SHA256: Hash(data),
		BLAKE3: Blake3Hash(data),
	}
}

// SumString computes both digests of s.
func SumString(s string) HashResult {
	return Sum([]byte(s))
}

// Blake3Hash computes the BLAKE3 hash of the given data.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
