//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package curve implements arithmetic over the Stark curve, the
// prime-order elliptic curve group used alongside the scalar field
// in package field. Like field, this package is the concrete
// stand-in for the "external collaborator" that spec.md §1 leaves
// opaque: generator(), identity(), and point addition/negation/
// scalar multiplication.
package curve

import (
	"math/big"

	"github.com/markkurossi/starkspdz/field"
)

var (
	// alpha and beta are the short Weierstrass coefficients of
	// y^2 = x^3 + alpha*x + beta (mod field.Prime).
	alpha = field.One()
	beta  = field.New(mustParse(
		"6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89"))

	// genX, genY are the coordinates of the curve generator.
	genX = field.New(mustParse(
		"1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"))
	genY = field.New(mustParse(
		"5668060aa49730b7be4801df46ec62de53ecd11abe43a32873000c36e8dc1f"))
)

func mustParse(hex string) *big.Int {
	v, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("curve: invalid constant")
	}
	return v
}

// Point is an affine point on the Stark curve. The zero value is
// NOT the curve identity; use Identity().
type Point struct {
	x, y       field.Element
	isInfinity bool
}

// Identity returns the point at infinity, the group identity.
func Identity() Point {
	return Point{isInfinity: true}
}

// Generator returns the curve's base point G.
func Generator() Point {
	return Point{x: genX, y: genY}
}

// NewAffine builds a point from affine coordinates. The caller is
// responsible for only passing coordinates on the curve; this
// mirrors the teacher's treatment of curve points as externally
// validated values (see crypto/spdz.ShareInput).
func NewAffine(x, y field.Element) Point {
	return Point{x: x, y: y}
}

// IsIdentity reports whether p is the group identity.
func (p Point) IsIdentity() bool {
	return p.isInfinity
}

// XY returns p's affine coordinates. Calling XY on the identity
// returns two zero elements.
func (p Point) XY() (field.Element, field.Element) {
	return p.x, p.y
}

// Equal reports whether p and q denote the same point.
func Equal(p, q Point) bool {
	if p.isInfinity || q.isInfinity {
		return p.isInfinity == q.isInfinity
	}
	return field.Equal(p.x, q.x) && field.Equal(p.y, q.y)
}

// Neg returns -p.
func Neg(p Point) Point {
	if p.isInfinity {
		return p
	}
	return Point{x: p.x, y: field.Neg(p.y)}
}

// Add returns p+q using the standard short-Weierstrass addition and
// doubling formulas.
func Add(p, q Point) Point {
	if p.isInfinity {
		return q
	}
	if q.isInfinity {
		return p
	}
	if field.Equal(p.x, q.x) {
		if field.Equal(p.y, field.Neg(q.y)) {
			return Identity()
		}
		return double(p)
	}

	dx := field.Sub(q.x, p.x)
	dy := field.Sub(q.y, p.y)
	lam := field.Mul(dy, field.Inv(dx))

	x3 := field.Sub(field.Sub(field.Mul(lam, lam), p.x), q.x)
	y3 := field.Sub(field.Mul(lam, field.Sub(p.x, x3)), p.y)
	return Point{x: x3, y: y3}
}

func double(p Point) Point {
	if p.isInfinity || field.IsZero(p.y) {
		return Identity()
	}
	three := field.FromInt64(3)
	two := field.FromInt64(2)

	num := field.Add(field.Mul(three, field.Mul(p.x, p.x)), alpha)
	den := field.Mul(two, p.y)
	lam := field.Mul(num, field.Inv(den))

	x3 := field.Sub(field.Mul(lam, lam), field.Mul(two, p.x))
	y3 := field.Sub(field.Mul(lam, field.Sub(p.x, x3)), p.y)
	return Point{x: x3, y: y3}
}

// Sub returns p-q.
func Sub(p, q Point) Point {
	return Add(p, Neg(q))
}

// ScalarMul returns s*p using left-to-right double-and-add.
func ScalarMul(s field.Element, p Point) Point {
	res := Identity()
	base := p

	v := s.Big()
	for i := v.BitLen() - 1; i >= 0; i-- {
		res = double(res)
		if v.Bit(i) == 1 {
			res = Add(res, base)
		}
	}
	return res
}

// ScalarBaseMul returns s*G.
func ScalarBaseMul(s field.Element) Point {
	return ScalarMul(s, Generator())
}

// Embed lifts a scalar x to the curve as x*G, the embedding
// Scalar -> Point named in spec.md §1.
func Embed(x field.Element) Point {
	return ScalarBaseMul(x)
}
