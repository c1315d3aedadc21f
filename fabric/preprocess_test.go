//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"crypto/rand"
	"testing"

	"github.com/markkurossi/starkspdz/field"
)

func TestDealerSharedValueSumsCorrectly(t *testing.T) {
	p0, p1 := NewDealerPair(rand.Reader)

	// The very first draw on each side must agree: it is the shared
	// MAC key, generated once by whichever side is pulled first and
	// cached for the other.
	k0, err := p0.NextSharedValue()
	if err != nil {
		t.Fatalf("p0.NextSharedValue: %v", err)
	}
	k1, err := p1.NextSharedValue()
	if err != nil {
		t.Fatalf("p1.NextSharedValue: %v", err)
	}
	if field.IsZero(field.Add(k0, k1)) {
		t.Fatalf("MAC key shares summed to zero, vanishingly unlikely for honest randomness")
	}
	if !field.Equal(field.Add(k0, k1), p0.core.macKey) {
		t.Fatalf("MAC key shares do not sum to the dealer's MAC key")
	}
}

func TestDealerTripleIsConsistent(t *testing.T) {
	p0, p1 := NewDealerPair(rand.Reader)

	// Establish the MAC key before drawing triples (NextTripleBatch
	// requires it).
	if _, err := p0.NextSharedValue(); err != nil {
		t.Fatalf("p0.NextSharedValue: %v", err)
	}

	t0, err := p0.NextTriple()
	if err != nil {
		t.Fatalf("p0.NextTriple: %v", err)
	}
	t1, err := p1.NextTriple()
	if err != nil {
		t.Fatalf("p1.NextTriple: %v", err)
	}

	a := field.Add(t0.A, t1.A)
	b := field.Add(t0.B, t1.B)
	c := field.Add(t0.C, t1.C)
	if !field.Equal(c, field.Mul(a, b)) {
		t.Fatalf("a*b != c: a=%v b=%v c=%v want %v", a, b, c, field.Mul(a, b))
	}
}

func TestDealerTripleMacsAreConsistent(t *testing.T) {
	p0, p1 := NewDealerPair(rand.Reader)

	k0, err := p0.NextSharedValue()
	if err != nil {
		t.Fatalf("p0.NextSharedValue: %v", err)
	}
	k1, err := p1.NextSharedValue()
	if err != nil {
		t.Fatalf("p1.NextSharedValue: %v", err)
	}
	k := field.Add(k0, k1)

	t0, err := p0.NextTriple()
	if err != nil {
		t.Fatalf("p0.NextTriple: %v", err)
	}
	t1, err := p1.NextTriple()
	if err != nil {
		t.Fatalf("p1.NextTriple: %v", err)
	}

	a := field.Add(t0.A, t1.A)
	macA := field.Add(t0.MacA, t1.MacA)
	if !field.Equal(macA, field.Mul(k, a)) {
		t.Fatalf("MacA != k*A")
	}

	c := field.Add(t0.C, t1.C)
	macC := field.Add(t0.MacC, t1.MacC)
	if !field.Equal(macC, field.Mul(k, c)) {
		t.Fatalf("MacC != k*C")
	}
}

func TestDealerSharedBitIsZeroOrOne(t *testing.T) {
	p0, p1 := NewDealerPair(rand.Reader)

	for i := 0; i < 16; i++ {
		b0, err := p0.NextSharedBit()
		if err != nil {
			t.Fatalf("p0.NextSharedBit: %v", err)
		}
		b1, err := p1.NextSharedBit()
		if err != nil {
			t.Fatalf("p1.NextSharedBit: %v", err)
		}
		sum := field.Add(b0, b1)
		if !field.Equal(sum, field.Zero()) && !field.Equal(sum, field.One()) {
			t.Fatalf("shared bit %d is neither 0 nor 1: %v", i, sum)
		}
	}
}

func TestDealerInversePairIsConsistent(t *testing.T) {
	p0, p1 := NewDealerPair(rand.Reader)

	r0, inv0, err := p0.NextSharedInversePair()
	if err != nil {
		t.Fatalf("p0.NextSharedInversePair: %v", err)
	}
	r1, inv1, err := p1.NextSharedInversePair()
	if err != nil {
		t.Fatalf("p1.NextSharedInversePair: %v", err)
	}

	r := field.Add(r0, r1)
	inv := field.Add(inv0, inv1)
	if !field.Equal(field.Mul(r, inv), field.One()) {
		t.Fatalf("r * r^-1 != 1")
	}
}
