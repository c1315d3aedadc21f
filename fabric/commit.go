//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"crypto/rand"
	"io"

	"github.com/markkurossi/starkspdz/field"
	"github.com/markkurossi/starkspdz/internal/hkdf"
)

// commitLabel domain-separates the MAC-check commitment from any
// other use of internal/hkdf.
var commitLabel = []byte("starkspdz mac-check commitment")

// blinderLen is the width of the commitment blinder; full width
// matches a field element so the commitment stays hiding even
// against a field-sized guessing attack.
const blinderLen = field.ByteLen

// digestOf hashes an arbitrary payload together with blinder,
// producing the commitment used by the authenticated-opening
// protocol of spec.md §4.4 to stop a malicious party from choosing
// its MAC-check contribution after seeing the peer's. payload is the
// wire encoding of the MAC-check value (a scalar or a point).
func digestOf(payload []byte, blinder [blinderLen]byte) [field.ByteLen]byte {
	prk := make([]byte, 0, len(payload)+blinderLen)
	prk = append(prk, payload...)
	prk = append(prk, blinder[:]...)

	var out [field.ByteLen]byte
	hkdf.Expand(prk, commitLabel, out[:])
	return out
}

func randomBlinder(rng io.Reader) ([blinderLen]byte, error) {
	var b [blinderLen]byte
	_, err := io.ReadFull(rng, b[:])
	return b, err
}

func defaultRand() io.Reader {
	return rand.Reader
}

// digestValue wraps a commitment digest as a wire Value.
func digestValue(d [field.ByteLen]byte) Value {
	return BytesValue(append([]byte(nil), d[:]...))
}

// decodeDigest is the inverse of digestValue.
func decodeDigest(v Value) ([field.ByteLen]byte, error) {
	b := v.Bytes()
	var d [field.ByteLen]byte
	if len(b) != field.ByteLen {
		return d, &NetworkError{Msg: "truncated commitment digest"}
	}
	copy(d[:], b)
	return d, nil
}

// encodeScalarReveal packs an opened MAC-check scalar and its
// blinder into a single wire Value for the reveal round.
func encodeScalarReveal(value field.Element, blinder [blinderLen]byte) Value {
	out := make([]byte, 0, field.ByteLen+blinderLen)
	out = append(out, value.Bytes()...)
	out = append(out, blinder[:]...)
	return BytesValue(out)
}

// decodeScalarReveal is the inverse of encodeScalarReveal.
func decodeScalarReveal(v Value) (field.Element, [blinderLen]byte, error) {
	b := v.Bytes()
	if len(b) != field.ByteLen+blinderLen {
		return field.Element{}, [blinderLen]byte{}, &NetworkError{Msg: "truncated commitment reveal"}
	}
	value, err := field.SetBytes(b[:field.ByteLen])
	if err != nil {
		return field.Element{}, [blinderLen]byte{}, &NetworkError{Msg: err.Error()}
	}
	var blinder [blinderLen]byte
	copy(blinder[:], b[field.ByteLen:])
	return value, blinder, nil
}

// encodeScalarBatchReveal is the batched form of encodeScalarReveal:
// n MAC-check scalars sharing one blinder, for the batched
// authenticated-opening protocol of spec.md §4.4.
func encodeScalarBatchReveal(values []field.Element, blinder [blinderLen]byte) Value {
	out := make([]byte, 0, len(values)*field.ByteLen+blinderLen)
	for _, v := range values {
		out = append(out, v.Bytes()...)
	}
	out = append(out, blinder[:]...)
	return BytesValue(out)
}

// decodeScalarBatchReveal is the inverse of encodeScalarBatchReveal.
func decodeScalarBatchReveal(v Value, n int) ([]field.Element, [blinderLen]byte, error) {
	b := v.Bytes()
	want := n*field.ByteLen + blinderLen
	if len(b) != want {
		return nil, [blinderLen]byte{}, &NetworkError{Msg: "truncated batch commitment reveal"}
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		s, err := field.SetBytes(b[i*field.ByteLen : (i+1)*field.ByteLen])
		if err != nil {
			return nil, [blinderLen]byte{}, &NetworkError{Msg: err.Error()}
		}
		out[i] = s
	}
	var blinder [blinderLen]byte
	copy(blinder[:], b[n*field.ByteLen:])
	return out, blinder, nil
}
