// Package fingerprint computes page content digests and decides whether a
// page must be exported again.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/matzehuels/drawsync/pkg/manifest"
)

// Compute returns the hex-encoded SHA-256 digest of content.
// The result is 64 characters long and depends only on the bytes given.
func Compute(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HasChanged reports whether cur differs from the previously synced record.
// A missing record (prev == nil) always counts as changed. Name, hash and
// output path are all part of the identity: renaming a page or exporting it
// to a different folder forces a new export just like a content edit.
func HasChanged(prev *manifest.Page, cur manifest.Page) bool {
	if prev == nil {
		return true
	}
	return !prev.Equal(cur)
}
