//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/markkurossi/mpc/p2p"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/field"
)

// runBothParties wires up a pair of fabrics over an in-process pipe
// and a dealer preprocessing pair, runs fn on both sides concurrently,
// and fails the test if either side returns an error. This mirrors
// crypto/spdz/spdz_test.go's testAdd helper.
func runBothParties(t *testing.T, fn func(t *testing.T, f *Fabric, party int) error) {
	t.Helper()

	pA, pB := p2p.Pipe()
	dealerA, dealerB := NewDealerPair(rand.Reader)

	var wg sync.WaitGroup
	wg.Add(2)

	var errA, errB error

	go func() {
		defer wg.Done()
		f, err := New(Party0, NewPipeTransport(pA), dealerA, 256)
		if err != nil {
			errA = err
			return
		}
		defer f.Shutdown()
		errA = fn(t, f, Party0)
	}()

	go func() {
		defer wg.Done()
		f, err := New(Party1, NewPipeTransport(pB), dealerB, 256)
		if err != nil {
			errB = err
			return
		}
		defer f.Shutdown()
		errB = fn(t, f, Party1)
	}()

	wg.Wait()

	if errA != nil {
		t.Fatalf("party 0: %v", errA)
	}
	if errB != nil {
		t.Fatalf("party 1: %v", errB)
	}
}

// TestShareOpenRoundTrip covers P3: open(share(v, party)) == v.
func TestShareOpenRoundTrip(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		x, err := f.ShareScalar(field.FromInt64(41), Party0)
		if err != nil {
			return err
		}
		got, err := x.Open().AwaitScalar(context.Background())
		if err != nil {
			return err
		}
		if !field.Equal(got, field.FromInt64(41)) {
			t.Errorf("party %d: got %v, want 41", party, got)
		}
		return nil
	})
}

// TestShareOpenRoundTripPoint is the point-layer form of P3.
func TestShareOpenRoundTripPoint(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		want := curve.ScalarMul(field.FromInt64(6), curve.Generator())
		x, err := f.SharePoint(want, Party1)
		if err != nil {
			return err
		}
		got, err := x.Open().Await(context.Background())
		if err != nil {
			return err
		}
		if !curve.Equal(got.Point(), want) {
			t.Errorf("party %d: point round trip mismatch", party)
		}
		return nil
	})
}

// TestAuthenticatedOpenSucceedsHonestly covers P4: honest authenticated
// opening succeeds and returns the right value.
func TestAuthenticatedOpenSucceedsHonestly(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		x, err := f.ShareAuthenticatedScalar(field.FromInt64(13), Party0)
		if err != nil {
			return err
		}
		got, err := x.OpenAuthenticated(f).Await(context.Background())
		if err != nil {
			return err
		}
		if !field.Equal(got, field.FromInt64(13)) {
			t.Errorf("party %d: got %v, want 13", party, got)
		}
		return nil
	})
}

// TestAuthenticatedOpenRejectsTamperedMac covers P5: corrupting the
// MAC share before opening must be detected.
func TestAuthenticatedOpenRejectsTamperedMac(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		x, err := f.ShareAuthenticatedScalar(field.FromInt64(99), Party0)
		if err != nil {
			return err
		}
		// Both parties must emit exactly one gate here so the id
		// streams stay aligned (spec.md §9); only the produced value
		// differs by party.
		var bogus field.Element
		if party == Party0 {
			bogus, err = field.Random(rand.Reader)
			if err != nil {
				return err
			}
		}
		x.Mac = f.NewGateOp([]ResultId{x.Mac.ID()}, func(args []Value) (Value, error) {
			if party == Party0 {
				return ScalarValue(bogus), nil
			}
			return args[0], nil
		})
		_, err = x.OpenAuthenticated(f).Await(context.Background())
		if err == nil {
			t.Errorf("party %d: expected AuthenticationError, got nil", party)
			return nil
		}
		if _, ok := err.(*AuthenticationError); !ok {
			t.Errorf("party %d: expected AuthenticationError, got %T: %v", party, err, err)
		}
		return nil
	})
}

// TestHomomorphism covers P6: a*x + b*y + c opens to the same value
// computed in the clear.
func TestHomomorphism(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		x, err := f.ShareAuthenticatedScalar(field.FromInt64(5), Party0)
		if err != nil {
			return err
		}
		y, err := f.ShareAuthenticatedScalar(field.FromInt64(11), Party1)
		if err != nil {
			return err
		}

		a := field.FromInt64(3)
		b := field.FromInt64(2)
		c := field.FromInt64(7)

		w := x.MulPublicScalar(f, a).Add(f, y.MulPublicScalar(f, b)).AddPublicScalar(f, c)
		got, err := w.OpenAuthenticated(f).Await(context.Background())
		if err != nil {
			return err
		}

		want := field.Add(field.Add(field.Mul(a, field.FromInt64(5)), field.Mul(b, field.FromInt64(11))), c)
		if !field.Equal(got, want) {
			t.Errorf("party %d: got %v, want %v", party, got, want)
		}
		return nil
	})
}

// TestBeaverMultiplication covers P7: open(x*y) == x_clear*y_clear.
func TestBeaverMultiplication(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		x, err := f.ShareAuthenticatedScalar(field.FromInt64(6), Party0)
		if err != nil {
			return err
		}
		y, err := f.ShareAuthenticatedScalar(field.FromInt64(7), Party1)
		if err != nil {
			return err
		}
		z, err := x.Mul(f, y)
		if err != nil {
			return err
		}
		got, err := z.OpenAuthenticated(f).Await(context.Background())
		if err != nil {
			return err
		}
		if !field.Equal(got, field.FromInt64(42)) {
			t.Errorf("party %d: got %v, want 42", party, got)
		}
		return nil
	})
}

// TestBeaverMultiplicationBatch covers P7 and P8 together for the
// batched scalar multiplication path.
func TestBeaverMultiplicationBatch(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		xs := []field.Element{field.FromInt64(2), field.FromInt64(3), field.FromInt64(4)}
		ys := []field.Element{field.FromInt64(5), field.FromInt64(6), field.FromInt64(7)}

		ax := make([]AuthenticatedScalar, len(xs))
		ay := make([]AuthenticatedScalar, len(ys))
		for i := range xs {
			var err error
			ax[i], err = f.ShareAuthenticatedScalar(xs[i], Party0)
			if err != nil {
				return err
			}
			ay[i], err = f.ShareAuthenticatedScalar(ys[i], Party1)
			if err != nil {
				return err
			}
		}

		zs, err := MulScalarBatch(f, ax, ay)
		if err != nil {
			return err
		}

		opened, err := OpenAuthenticatedScalarBatch(f, zs)
		if err != nil {
			return err
		}
		for i, o := range opened {
			got, err := o.Await(context.Background())
			if err != nil {
				return err
			}
			want := field.Mul(xs[i], ys[i])
			if !field.Equal(got, want) {
				t.Errorf("party %d: element %d: got %v, want %v", party, i, got, want)
			}
		}
		return nil
	})
}

// TestPointAddition covers the point-layer analogue of P3/P6.
func TestPointAddition(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		g := curve.Generator()
		p := curve.ScalarMul(field.FromInt64(2), g)
		q := curve.ScalarMul(field.FromInt64(3), g)

		xP, err := f.ShareAuthenticatedPoint(p, Party0)
		if err != nil {
			return err
		}
		xQ, err := f.ShareAuthenticatedPoint(q, Party1)
		if err != nil {
			return err
		}

		sum := xP.Add(f, xQ)
		got, err := sum.OpenAuthenticated(f).Await(context.Background())
		if err != nil {
			return err
		}
		want := curve.ScalarMul(field.FromInt64(5), g)
		if !curve.Equal(got, want) {
			t.Errorf("party %d: point addition mismatch", party)
		}
		return nil
	})
}

// TestScalarTimesPoint covers authenticated-scalar times
// authenticated-point multiplication via a point Beaver triple.
func TestScalarTimesPoint(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		g := curve.Generator()
		q := curve.ScalarMul(field.FromInt64(4), g)

		x, err := f.ShareAuthenticatedScalar(field.FromInt64(3), Party0)
		if err != nil {
			return err
		}
		y, err := f.ShareAuthenticatedPoint(q, Party1)
		if err != nil {
			return err
		}

		z, err := x.MulPoint(f, y)
		if err != nil {
			return err
		}
		got, err := z.OpenAuthenticated(f).Await(context.Background())
		if err != nil {
			return err
		}
		want := curve.ScalarMul(field.FromInt64(12), g)
		if !curve.Equal(got, want) {
			t.Errorf("party %d: scalar*point mismatch", party)
		}
		return nil
	})
}

// TestMSM covers the multi-scalar-multiplication scenario.
func TestMSM(t *testing.T) {
	runBothParties(t, func(t *testing.T, f *Fabric, party int) error {
		g := curve.Generator()
		twoG := curve.ScalarMul(field.FromInt64(2), g)

		xG, err := f.ShareAuthenticatedPoint(g, Party0)
		if err != nil {
			return err
		}
		x2G, err := f.ShareAuthenticatedPoint(twoG, Party1)
		if err != nil {
			return err
		}

		scalars := []field.Element{field.FromInt64(2), field.FromInt64(3)}
		points := []AuthenticatedPoint{xG, x2G}

		result, err := MSM(f, scalars, points)
		if err != nil {
			return err
		}
		got, err := result.OpenAuthenticated(f).Await(context.Background())
		if err != nil {
			return err
		}
		want := curve.ScalarMul(field.FromInt64(8), g)
		if !curve.Equal(got, want) {
			t.Errorf("party %d: msm mismatch", party)
		}
		return nil
	})
}
