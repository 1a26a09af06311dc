package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalService_FixedFieldOrder(t *testing.T) {
	svc := NewCanonicalService()

	got := svc.Canonical("post", "/link", "abc123", "1756700000000", "n-1")

	assert.Equal(t, "POST\n/link\nabc123\n1756700000000\nn-1", got)
}

func TestCanonicalService_Deterministic(t *testing.T) {
	svc := NewCanonicalService()

	a := svc.Canonical("GET", "/status", UnsignedBody, "1756700000000", "n-2")
	b := svc.Canonical("GET", "/status", UnsignedBody, "1756700000000", "n-2")

	assert.Equal(t, a, b)
}

func TestCanonicalService_HashBody(t *testing.T) {
	svc := NewCanonicalService()

	h := svc.HashBody([]byte(`{"userId":"123"}`))
	assert.Regexp(t, `^[0-9a-f]{64}$`, h)
}

func TestCanonicalService_HashBody_UnsignedSentinel(t *testing.T) {
	svc := NewCanonicalService()

	assert.Equal(t, UnsignedBody, svc.HashBody(nil))
	assert.Equal(t, UnsignedBody, svc.HashBody([]byte("")))
	assert.Equal(t, UnsignedBody, svc.HashBody([]byte("  ")))
	assert.Equal(t, UnsignedBody, svc.HashBody([]byte("{}")))
	assert.Equal(t, UnsignedBody, svc.HashBody([]byte("null")))
}

func TestCanonicalService_HashBody_TamperSensitivity(t *testing.T) {
	svc := NewCanonicalService()

	body := []byte(`{"userId":"123","size":10}`)
	tampered := []byte(`{"userId":"123","size":11}`)

	assert.NotEqual(t, svc.HashBody(body), svc.HashBody(tampered),
		"a single changed byte must change the body hash")
}

func TestCanonicalService_PathChangesCanonical(t *testing.T) {
	svc := NewCanonicalService()

	a := svc.Canonical("POST", "/link", "h", "t", "n")
	b := svc.Canonical("POST", "/unlink", "h", "t", "n")

	assert.NotEqual(t, a, b)
}
