package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	nethttp "net/http"

	"github.com/Potenup-community/backend-sub002/internal/infra/hashing"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyCtx  = "idempotency_key"
	IdempotencyHashCtx = "idempotency_hash"

	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotencyBypassHeader = "X-Test-Bypass-Idempotency"

	maxIdempotencyKeyLength = 255
)

// IdempotencyRequired rejects requests without an Idempotency-Key. The bypass header
// is honoured only when allowBypass is set (never in production).
func IdempotencyRequired(allowBypass bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			idempotencyKey = c.GetHeader("X-Idempotency-Key")
		}
		bypass := c.GetHeader(IdempotencyBypassHeader)
		if idempotencyKey == "" && (!allowBypass || bypass != "true") {
			response.RespondError(c, nethttp.StatusBadRequest, "idempotency_key_required", "idempotency key is required")
			return
		}
		if len(idempotencyKey) > maxIdempotencyKeyLength {
			response.RespondError(c, nethttp.StatusBadRequest, "idempotency_key_invalid", "idempotency key is too long")
			return
		}

		if idempotencyKey == "" {
			c.Set(IdempotencyKeyCtx, "")
			c.Set(IdempotencyHashCtx, "")
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.RespondError(c, nethttp.StatusBadRequest, "invalid_body", "invalid request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(IdempotencyKeyCtx, idempotencyKey)
		c.Set(IdempotencyHashCtx, requestHash(body))

		c.Next()
	}
}

// requestHash fingerprints a body so that a replay with reordered JSON keys or
// different whitespace still matches.
func requestHash(body []byte) string {
	if json.Valid(body) {
		if sum, err := hashing.ContentHash(json.RawMessage(body)); err == nil {
			return sum
		}
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
