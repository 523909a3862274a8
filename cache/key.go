package cache

import (
	"strconv"
	"unicode/utf16"
)

// KeyPrefix namespaces cache keys so they cannot collide with unrelated
// entries sharing the same KV.
const KeyPrefix = "pagetl_cache_v1_"

// DeriveKey hashes a normalized URL into a short storage key. The hash is
// the 32-bit wrapping h*31+c string hash over UTF-16 code units, rendered
// base-36. It is deterministic but not collision free; a collision simply
// makes two URLs share one entry.
func DeriveKey(normalizedURL string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(normalizedURL)) {
		h = h*31 + int32(c)
	}

	// Widen before negating so MinInt32 stays positive.
	v := int64(h)
	if v < 0 {
		v = -v
	}

	return KeyPrefix + strconv.FormatInt(v, 36)
}
