package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestHash_IgnoresKeyOrderAndWhitespace(t *testing.T) {
	a := requestHash([]byte(`{"resume_id":"r","content":"x","requester_id":"u"}`))
	b := requestHash([]byte(`{ "content": "x", "requester_id": "u", "resume_id": "r" }`))
	c := requestHash([]byte(`{"resume_id":"r","content":"y","requester_id":"u"}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, requestHash([]byte("not json")), 64)
}
