// Package idhash computes deterministic record ids for trades whose source
// did not supply one. Identical observations always hash to the same id, so
// re-ingesting a row is a dedup no-op rather than a new record.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeTradeID computes a deterministic trade id.
// Formula: SHA256(venue|tokenIn|tokenOut|timestampMs|amountIn), truncated to
// 16 bytes and base58-encoded for a compact, URL-safe id.
func ComputeTradeID(venue, tokenIn, tokenOut string, timestampMs int64, amountIn string) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%s",
		venue,
		tokenIn,
		tokenOut,
		timestampMs,
		amountIn,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}
