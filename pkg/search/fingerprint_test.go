package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("transformer attention", 8, "")
	b := Fingerprint("transformer attention", 8, "")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintNormalizesQuery(t *testing.T) {
	a := Fingerprint("Transformer   Attention", 8, "")
	b := Fingerprint("transformer attention", 8, "")
	assert.Equal(t, a, b)
}

func TestFingerprintVariesByTuple(t *testing.T) {
	base := Fingerprint("q", 8, "")
	assert.NotEqual(t, base, Fingerprint("other", 8, ""))
	assert.NotEqual(t, base, Fingerprint("q", 9, ""))
	assert.NotEqual(t, base, Fingerprint("q", 8, "arxiv.org"))
}
