//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package curve

import (
	"testing"

	"github.com/markkurossi/starkspdz/field"
)

func TestIdentityIsNeutral(t *testing.T) {
	g := Generator()
	if !Equal(Add(g, Identity()), g) {
		t.Fatalf("g + identity != g")
	}
}

func TestNegCancels(t *testing.T) {
	g := Generator()
	if !Equal(Add(g, Neg(g)), Identity()) {
		t.Fatalf("g + (-g) != identity")
	}
}

func TestScalarMulDistributesOverAdd(t *testing.T) {
	g := Generator()
	two := field.FromInt64(2)
	three := field.FromInt64(3)
	five := field.FromInt64(5)

	lhs := Add(ScalarMul(two, g), ScalarMul(three, g))
	rhs := ScalarMul(five, g)
	if !Equal(lhs, rhs) {
		t.Fatalf("2G + 3G != 5G")
	}
}

func TestScalarMulZeroIsIdentity(t *testing.T) {
	g := Generator()
	if !Equal(ScalarMul(field.Zero(), g), Identity()) {
		t.Fatalf("0*G != identity")
	}
}

func TestScalarBaseMulMatchesScalarMul(t *testing.T) {
	s := field.FromInt64(17)
	if !Equal(ScalarBaseMul(s), ScalarMul(s, Generator())) {
		t.Fatalf("ScalarBaseMul(s) != ScalarMul(s, Generator())")
	}
}

func TestEmbedIsScalarMulByGenerator(t *testing.T) {
	s := field.FromInt64(9)
	if !Equal(Embed(s), ScalarMul(s, Generator())) {
		t.Fatalf("Embed(s) != s*G")
	}
}

func TestSubIsAddOfNeg(t *testing.T) {
	g := Generator()
	twoG := ScalarMul(field.FromInt64(2), g)
	if !Equal(Sub(twoG, g), g) {
		t.Fatalf("2G - G != G")
	}
}
