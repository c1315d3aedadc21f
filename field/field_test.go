//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"crypto/rand"
	"testing"
)

func TestAddSubRoundTrip(t *testing.T) {
	a, err := Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	b, err := Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}

	sum := Add(a, b)
	if !Equal(Sub(sum, b), a) {
		t.Fatalf("Sub(Add(a,b),b) != a")
	}
}

func TestMulInv(t *testing.T) {
	a, err := Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	for IsZero(a) {
		a, err = Random(rand.Reader)
		if err != nil {
			t.Fatalf("Random: %v", err)
		}
	}
	inv := Inv(a)
	if !Equal(Mul(a, inv), One()) {
		t.Fatalf("a * a^-1 != 1")
	}
}

func TestNeg(t *testing.T) {
	a, err := Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if !IsZero(Add(a, Neg(a))) {
		t.Fatalf("a + (-a) != 0")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a, err := Random(rand.Reader)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	b, err := SetBytes(a.Bytes())
	if err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if !Equal(a, b) {
		t.Fatalf("round trip through Bytes/SetBytes changed value")
	}
}

func TestZeroOne(t *testing.T) {
	if !IsZero(Zero()) {
		t.Fatalf("Zero() is not zero")
	}
	if IsZero(One()) {
		t.Fatalf("One() reported as zero")
	}
	if !Equal(Add(Zero(), One()), One()) {
		t.Fatalf("0 + 1 != 1")
	}
}

func TestFromInt64(t *testing.T) {
	if !Equal(Add(FromInt64(3), FromInt64(4)), FromInt64(7)) {
		t.Fatalf("3 + 4 != 7")
	}
	if !Equal(Mul(FromInt64(3), FromInt64(4)), FromInt64(12)) {
		t.Fatalf("3 * 4 != 12")
	}
}
