//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package hkdf implements the HMAC-based expansion step used to
// compute the MAC-check commitment digest. It is adapted from ephemelier's
// crypto/hkdf.ExpandTLS13, generalized from a TLS 1.3 key schedule
// step into a generic labeled expander.
package hkdf

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Expand fills out with pseudorandom bytes derived from
// pseudorandomKey and info, using the same counter-chained HMAC
// construction as TLS 1.3's HKDF-Expand.
func Expand(pseudorandomKey, info, out []byte) {
	expander := hmac.New(sha256.New, pseudorandomKey)
	counter := []byte{1}

	var prev []byte

	for len(out) > 0 {
		if counter[0] > 1 {
			expander.Reset()
			expander.Write(prev)
		}
		expander.Write(info)
		expander.Write(counter)
		prev = expander.Sum(prev[:0])
		counter[0]++

		n := copy(out, prev)
		out = out[n:]
	}
}
