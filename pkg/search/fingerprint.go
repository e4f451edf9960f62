package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint derives the cache key material for a request: a SHA-256 hex
// digest over the lowercased whitespace-collapsed query, the limit and the
// domain hint. Same tuple, same fingerprint.
func Fingerprint(query string, limit int, domainHint string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(limit)))
	h.Write([]byte{0})
	h.Write([]byte(domainHint))
	return hex.EncodeToString(h.Sum(nil))
}
