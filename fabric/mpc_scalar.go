//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"context"
	"crypto/rand"

	"github.com/markkurossi/starkspdz/field"
)

// MpcScalarResult is this party's additive share of a jointly shared
// field element, with no MAC attached (spec.md §3).
type MpcScalarResult struct {
	Share ResultHandle
}

// ShareScalar secret-shares v, known only to owner, between the two
// parties. The non-owning party must call this with the same owner
// argument; its v argument is ignored.
//
// The owner draws a random blinder r locally (its own share) and
// sends the masked value v-r to the peer; the peer's share is
// whatever arrives. Both parties allocate exactly two result ids
// here regardless of role, keeping the id streams aligned (spec.md
// §9's symmetric-graph-shape discipline).
func (f *Fabric) ShareScalar(v field.Element, owner int) (MpcScalarResult, error) {
	isOwner := f.party == owner

	var r field.Element
	if isOwner {
		var err error
		r, err = field.Random(rand.Reader)
		if err != nil {
			return MpcScalarResult{}, err
		}
	}

	localShare := f.NewGateOp(nil, func(args []Value) (Value, error) {
		return ScalarValue(r), nil
	})

	masked := f.NewNetworkOp(nil, func(args []Value) (Value, error) {
		if isOwner {
			return ScalarValue(field.Sub(v, r)), nil
		}
		return ScalarValue(field.Zero()), nil
	})

	if isOwner {
		return MpcScalarResult{Share: localShare}, nil
	}
	return MpcScalarResult{Share: masked}, nil
}

// ShareScalarBatch is the batched form of ShareScalar.
func (f *Fabric) ShareScalarBatch(vs []field.Element, owner int) ([]MpcScalarResult, error) {
	out := make([]MpcScalarResult, len(vs))
	for i, v := range vs {
		r, err := f.ShareScalar(v, owner)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// AllocatePreshared wraps a result id whose share was established out
// of band (e.g. by a higher protocol layer).
func (f *Fabric) AllocatePreshared(id ResultId) MpcScalarResult {
	return MpcScalarResult{Share: f.handle(id)}
}

// Open exchanges shares with the peer and returns the plaintext
// value: a send of the local share, combined with the peer's share
// by a local sum gate (spec.md §4.4 "Opening").
func (r MpcScalarResult) Open() ResultHandle {
	f := r.Share.f
	peer := f.SendValue(r.Share)
	return f.NewGateOp([]ResultId{r.Share.id, peer.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Add(args[0].Scalar(), args[1].Scalar())), nil
	})
}

// AddScalarResult returns the share-wise sum of two MpcScalarResults,
// local and non-interactive.
func AddScalarResult(f *Fabric, a, b MpcScalarResult) MpcScalarResult {
	h := f.NewGateOp([]ResultId{a.Share.id, b.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Add(args[0].Scalar(), args[1].Scalar())), nil
	})
	return MpcScalarResult{Share: h}
}

// MulScalarResult returns a*b using one Beaver triple drawn from the
// preprocessing source, with no MAC attached to either operand or the
// result (spec.md §2's un-MAC'd MPC layer). This is the primitive the
// authenticated layer itself is built on: ShareAuthenticatedScalar
// calls it to turn the additively shared MAC key and the freshly
// shared value into the value's own MAC, since at that point neither
// operand has a MAC of its own to check.
//
// Unlike AuthenticatedScalar.Mul (beaver.go), there is no public
// modifier here to reconcile an uneven split of the public cross term
// d*e, so it is added to party 0's share only -- exactly once across
// both parties -- mirroring crypto/spdz.MulShare's "only the sending
// role adds dv*ev" asymmetry.
func MulScalarResult(f *Fabric, a, b MpcScalarResult) (MpcScalarResult, error) {
	t, err := f.NextBeaverTriple()
	if err != nil {
		return MpcScalarResult{}, err
	}
	ta := MpcScalarResult{Share: f.wrapScalar(t.A)}
	tb := MpcScalarResult{Share: f.wrapScalar(t.B)}
	tc := MpcScalarResult{Share: f.wrapScalar(t.C)}

	dShare := f.NewGateOp([]ResultId{a.Share.id, ta.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Sub(args[0].Scalar(), args[1].Scalar())), nil
	})
	eShare := f.NewGateOp([]ResultId{b.Share.id, tb.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Sub(args[0].Scalar(), args[1].Scalar())), nil
	})

	dH := (MpcScalarResult{Share: dShare}).Open()
	eH := (MpcScalarResult{Share: eShare}).Open()

	ctx := context.Background()
	d, err := dH.AwaitScalar(ctx)
	if err != nil {
		return MpcScalarResult{}, err
	}
	e, err := eH.AwaitScalar(ctx)
	if err != nil {
		return MpcScalarResult{}, err
	}

	result := f.NewGateOp([]ResultId{tb.Share.id, ta.Share.id, tc.Share.id},
		func(args []Value) (Value, error) {
			bShare := args[0].Scalar()
			aShare := args[1].Scalar()
			cShare := args[2].Scalar()
			term := field.Add(field.Add(field.Mul(d, bShare), field.Mul(e, aShare)), cShare)
			if f.party == Party0 {
				term = field.Add(term, field.Mul(d, e))
			}
			return ScalarValue(term), nil
		})
	return MpcScalarResult{Share: result}, nil
}
