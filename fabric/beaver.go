//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"context"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/field"
)

// wrapScalar lifts a locally-known field element (this party's own
// preprocessing share) into a ResultHandle, so it can be used as a
// gate argument alongside network-derived values.
func (f *Fabric) wrapScalar(v field.Element) ResultHandle {
	return f.NewGateOp(nil, func(args []Value) (Value, error) {
		return ScalarValue(v), nil
	})
}

// wrapPoint is wrapScalar's point-layer counterpart.
func (f *Fabric) wrapPoint(p curve.Point) ResultHandle {
	return f.NewGateOp(nil, func(args []Value) (Value, error) {
		return PointValue(p), nil
	})
}

// authFromTripleScalar wraps a preprocessing triple component (share
// and MAC share already this party's own) as a fresh AuthenticatedScalar
// with no public modifier, since it has not yet had any public
// constant applied to it.
func (f *Fabric) authFromTripleScalar(share, mac field.Element) AuthenticatedScalar {
	return AuthenticatedScalar{
		Share:          f.wrapScalar(share),
		Mac:            f.wrapScalar(mac),
		PublicModifier: field.Zero(),
	}
}

// authFromTriplePoint is authFromTripleScalar's point-layer
// counterpart.
func (f *Fabric) authFromTriplePoint(share, mac curve.Point) AuthenticatedPoint {
	return AuthenticatedPoint{
		Share:          f.wrapPoint(share),
		Mac:            f.wrapPoint(mac),
		PublicModifier: curve.Identity(),
	}
}

// openScalarSharesBatch opens n additive scalar shares in a single
// network round: one batched send/receive plus one local batch gate
// that sums local and peer shares elementwise.
func openScalarSharesBatch(f *Fabric, shareIDs []ResultId) []ResultHandle {
	n := len(shareIDs)
	peer := f.NewNetworkOp(shareIDs, func(args []Value) (Value, error) {
		vals := make([]field.Element, len(args))
		for i, a := range args {
			vals[i] = a.Scalar()
		}
		return ScalarBatchValue(vals), nil
	})

	args := append(append([]ResultId{}, shareIDs...), peer.id)
	return f.NewBatchGateOp(args, n, func(args []Value) ([]Value, error) {
		peerVals := args[n].ScalarBatch()
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			out[i] = ScalarValue(field.Add(args[i].Scalar(), peerVals[i]))
		}
		return out, nil
	})
}

// Mul returns x*y using one Beaver triple, per spec.md §4.5: each
// factor is masked against a triple component and opened
// (unauthenticated — the opened mask is public by construction, so
// there is nothing left for a MAC to protect), then the product is
// reconstructed from public linear combinations that keep the MAC
// invariant intact.
func (x AuthenticatedScalar) Mul(f *Fabric, y AuthenticatedScalar) (AuthenticatedScalar, error) {
	t, err := f.NextBeaverTriple()
	if err != nil {
		return AuthenticatedScalar{}, err
	}
	a := f.authFromTripleScalar(t.A, t.MacA)
	b := f.authFromTripleScalar(t.B, t.MacB)
	c := f.authFromTripleScalar(t.C, t.MacC)

	dH := x.Sub(f, a).Open(f)
	eH := y.Sub(f, b).Open(f)

	ctx := context.Background()
	d, err := dH.AwaitScalar(ctx)
	if err != nil {
		return AuthenticatedScalar{}, err
	}
	e, err := eH.AwaitScalar(ctx)
	if err != nil {
		return AuthenticatedScalar{}, err
	}

	term1 := b.MulPublicScalar(f, d)
	term2 := a.MulPublicScalar(f, e)
	return term1.Add(f, term2).Add(f, c).AddPublicScalar(f, field.Mul(d, e)), nil
}

// MulScalarBatch multiplies xs[i]*ys[i] pairwise using one batched
// Beaver round for the whole batch (spec.md §4.5 "Batched form").
func MulScalarBatch(f *Fabric, xs, ys []AuthenticatedScalar) ([]AuthenticatedScalar, error) {
	n := len(xs)
	if n != len(ys) {
		return nil, &ProgrammerError{Op: "MulScalarBatch", Msg: "xs/ys length mismatch"}
	}
	if n == 0 {
		return nil, &ProgrammerError{Op: "MulScalarBatch", Msg: "empty batch"}
	}

	triples, err := f.NextBeaverTripleBatch(n)
	if err != nil {
		return nil, err
	}

	dIDs := make([]ResultId, n)
	eIDs := make([]ResultId, n)
	for i := range xs {
		a := f.authFromTripleScalar(triples[i].A, triples[i].MacA)
		b := f.authFromTripleScalar(triples[i].B, triples[i].MacB)
		dIDs[i] = xs[i].Sub(f, a).Share.id
		eIDs[i] = ys[i].Sub(f, b).Share.id
	}

	opened := openScalarSharesBatch(f, append(append([]ResultId{}, dIDs...), eIDs...))

	ctx := context.Background()
	out := make([]AuthenticatedScalar, n)
	for i := 0; i < n; i++ {
		d, err := opened[i].AwaitScalar(ctx)
		if err != nil {
			return nil, err
		}
		e, err := opened[n+i].AwaitScalar(ctx)
		if err != nil {
			return nil, err
		}

		a := f.authFromTripleScalar(triples[i].A, triples[i].MacA)
		b := f.authFromTripleScalar(triples[i].B, triples[i].MacB)
		c := f.authFromTripleScalar(triples[i].C, triples[i].MacC)

		term1 := b.MulPublicScalar(f, d)
		term2 := a.MulPublicScalar(f, e)
		out[i] = term1.Add(f, term2).Add(f, c).AddPublicScalar(f, field.Mul(d, e))
	}
	return out, nil
}

// MulPoint returns x*(yG) using one point Beaver triple, per spec.md
// §4.5's authenticated-scalar-times-authenticated-point case.
func (x AuthenticatedScalar) MulPoint(f *Fabric, y AuthenticatedPoint) (AuthenticatedPoint, error) {
	t, err := f.NextAuthenticatedTriple()
	if err != nil {
		return AuthenticatedPoint{}, err
	}
	a := f.authFromTripleScalar(t.A, t.AMac)
	bG := f.authFromTriplePoint(t.BPoint, t.BPointMac)
	cG := f.authFromTriplePoint(t.C, t.CMac)

	dH := x.Sub(f, a).Open(f)
	eGH := y.Sub(f, bG).Open(f)

	ctx := context.Background()
	d, err := dH.AwaitScalar(ctx)
	if err != nil {
		return AuthenticatedPoint{}, err
	}
	eGVal, err := eGH.Await(ctx)
	if err != nil {
		return AuthenticatedPoint{}, err
	}
	eG := eGVal.Point()

	// a*eG: a is secret (share+mac), eG is now public, so the
	// product's share/mac are a's share/mac scaled by the public
	// point eG. a carries no public modifier (it is a fresh triple
	// component), so its MAC share already equals k*a exactly.
	aTimesEG := AuthenticatedPoint{
		Share: f.NewGateOp([]ResultId{a.Share.id}, func(args []Value) (Value, error) {
			return PointValue(curve.ScalarMul(args[0].Scalar(), eG)), nil
		}),
		Mac: f.NewGateOp([]ResultId{a.Mac.id}, func(args []Value) (Value, error) {
			return PointValue(curve.ScalarMul(args[0].Scalar(), eG)), nil
		}),
		PublicModifier: curve.Identity(),
	}

	dTimesBG := bG.MulPublicScalar(f, d)
	dTimesEG := curve.ScalarMul(d, eG)

	return dTimesBG.Add(f, aTimesEG).Add(f, cG).AddPublicPoint(f, dTimesEG), nil
}

// MSM computes the multi-scalar multiplication sum(scalars[i] *
// points[i]) for publicly known scalars and authenticated points. No
// network round is needed: each term is a local public-scalar
// multiplication and the reduction is a local sum (spec.md §4.5).
func MSM(f *Fabric, scalars []field.Element, points []AuthenticatedPoint) (AuthenticatedPoint, error) {
	if len(scalars) != len(points) || len(scalars) == 0 {
		return AuthenticatedPoint{}, &ProgrammerError{Op: "MSM", Msg: "scalars/points length mismatch or empty"}
	}
	acc := points[0].MulPublicScalar(f, scalars[0])
	for i := 1; i < len(points); i++ {
		acc = acc.Add(f, points[i].MulPublicScalar(f, scalars[i]))
	}
	return acc, nil
}
