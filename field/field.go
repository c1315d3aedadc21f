//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package field implements arithmetic over the Stark curve scalar
// field. It plays the role of the "external collaborator" that
// spec.md §1 treats as opaque: arithmetic (Add, Sub, Mul, Neg, Inv),
// comparison, constants, random sampling and the fixed-width byte
// encoding.
package field

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

// Prime is the Stark curve scalar field modulus,
// 2^251 + 17*2^192 + 1.
var Prime = mustParse("800000000000011000000000000000000000000000000000000000000000001")

func mustParse(hex string) *big.Int {
	v, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("field: invalid prime constant")
	}
	return v
}

// ByteLen is the number of bytes used to serialize an Element.
const ByteLen = 32

// Element is a single element of the Stark curve scalar field,
// always kept reduced modulo Prime.
type Element struct {
	v *big.Int
}

func reduce(x *big.Int) *big.Int {
	z := new(big.Int).Mod(x, Prime)
	if z.Sign() < 0 {
		z.Add(z, Prime)
	}
	return z
}

// New creates a field element from v, reducing it modulo Prime.
func New(v *big.Int) Element {
	return Element{v: reduce(v)}
}

// FromInt64 creates a field element from a small integer.
func FromInt64(v int64) Element {
	return New(big.NewInt(v))
}

// Zero is the additive identity.
func Zero() Element {
	return Element{v: big.NewInt(0)}
}

// One is the multiplicative identity.
func One() Element {
	return Element{v: big.NewInt(1)}
}

// Random draws a uniformly random field element from r.
func Random(r io.Reader) (Element, error) {
	b := make([]byte, ByteLen)
	if _, err := io.ReadFull(r, b); err != nil {
		return Element{}, err
	}
	return New(new(big.Int).SetBytes(b)), nil
}

// MustRandom is like Random but draws from crypto/rand and panics on
// failure; failure here indicates a broken system entropy source.
func MustRandom() Element {
	e, err := Random(rand.Reader)
	if err != nil {
		panic(err)
	}
	return e
}

// Add returns a+b.
func Add(a, b Element) Element {
	return New(new(big.Int).Add(a.v, b.v))
}

// Sub returns a-b.
func Sub(a, b Element) Element {
	return New(new(big.Int).Sub(a.v, b.v))
}

// Mul returns a*b.
func Mul(a, b Element) Element {
	return New(new(big.Int).Mul(a.v, b.v))
}

// Neg returns -a.
func Neg(a Element) Element {
	return New(new(big.Int).Neg(a.v))
}

// Inv returns the multiplicative inverse of a via Fermat's little
// theorem, a^(p-2). Panics if a is zero.
func Inv(a Element) Element {
	if a.v.Sign() == 0 {
		panic("field: inverse of zero")
	}
	exp := new(big.Int).Sub(Prime, big.NewInt(2))
	return Element{v: new(big.Int).Exp(a.v, exp, Prime)}
}

// Equal reports whether a and b denote the same field element.
func Equal(a, b Element) bool {
	return a.v.Cmp(b.v) == 0
}

// IsZero reports whether a is the additive identity.
func IsZero(a Element) bool {
	return a.v.Sign() == 0
}

// Big returns a's value as a big.Int; the caller must not mutate it.
func (e Element) Big() *big.Int {
	return e.v
}

// Bytes serializes e as a fixed-width 32-byte big-endian value.
func (e Element) Bytes() []byte {
	out := make([]byte, ByteLen)
	if e.v == nil {
		return out
	}
	b := e.v.Bytes()
	copy(out[ByteLen-len(b):], b)
	return out
}

// SetBytes decodes a big-endian value produced by Bytes.
func SetBytes(b []byte) (Element, error) {
	if len(b) != ByteLen {
		return Element{}, errors.New("field: invalid element length")
	}
	return New(new(big.Int).SetBytes(b)), nil
}

// String implements fmt.Stringer.
func (e Element) String() string {
	if e.v == nil {
		return "0"
	}
	return e.v.String()
}
