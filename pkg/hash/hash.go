package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ClientKeyLen is the number of hex characters kept for a client key.
const ClientKeyLen = 16

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Prefix returns the first prefixLen characters of SHA256(input).
func Prefix(input string, prefixLen int) string {
	full := SHA256Hex(input)
	if prefixLen > len(full) {
		return full
	}
	return full[:prefixLen]
}

// ClientKey derives the storage key suffix for a client ID, so raw
// identifiers never appear as keys in a shared medium.
func ClientKey(clientID string) string {
	return Prefix(clientID, ClientKeyLen)
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt for log correlation.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, 1000)[:12]
}
