// Package checksum fingerprints note content so unchanged files can be
// recognized across migration runs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. Digests are stored in
// the manifest and compared as opaque strings.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
