// Package cachekey derives the stable, content-addressed cache directory
// name for a repository, shared by the config store (which must delete
// the right directory on repo removal) and the repo loader (which must
// read and write the same directory).
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the deterministic cache directory name for a (url,
// channel) pair. Two configurations with the same pair always resolve
// to the same directory; changing the channel changes the directory.
func Hash(url, channel string) string {
	sum := sha256.Sum256([]byte(url + "||" + channel))
	return hex.EncodeToString(sum[:])
}
