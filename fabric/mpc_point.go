//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"context"
	"crypto/rand"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/field"
)

// MpcPointResult is this party's additive share of a jointly shared
// curve point, with no MAC attached.
type MpcPointResult struct {
	Share ResultHandle
}

// SharePoint secret-shares p, known only to owner, mirroring
// ShareScalar at the point layer.
func (f *Fabric) SharePoint(p curve.Point, owner int) (MpcPointResult, error) {
	isOwner := f.party == owner

	var r field.Element
	if isOwner {
		var err error
		r, err = field.Random(rand.Reader)
		if err != nil {
			return MpcPointResult{}, err
		}
	}
	rG := curve.Embed(r)

	localShare := f.NewGateOp(nil, func(args []Value) (Value, error) {
		return PointValue(rG), nil
	})

	masked := f.NewNetworkOp(nil, func(args []Value) (Value, error) {
		if isOwner {
			return PointValue(curve.Sub(p, rG)), nil
		}
		return PointValue(curve.Identity()), nil
	})

	if isOwner {
		return MpcPointResult{Share: localShare}, nil
	}
	return MpcPointResult{Share: masked}, nil
}

// SharePointBatch is the batched form of SharePoint.
func (f *Fabric) SharePointBatch(ps []curve.Point, owner int) ([]MpcPointResult, error) {
	out := make([]MpcPointResult, len(ps))
	for i, p := range ps {
		r, err := f.SharePoint(p, owner)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Open exchanges shares with the peer and returns the plaintext
// point.
func (r MpcPointResult) Open() ResultHandle {
	f := r.Share.f
	peer := f.SendValue(r.Share)
	return f.NewGateOp([]ResultId{r.Share.id, peer.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Add(args[0].Point(), args[1].Point())), nil
	})
}

// AddPointResult returns the share-wise sum of two MpcPointResults.
func AddPointResult(f *Fabric, a, b MpcPointResult) MpcPointResult {
	h := f.NewGateOp([]ResultId{a.Share.id, b.Share.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Add(args[0].Point(), args[1].Point())), nil
	})
	return MpcPointResult{Share: h}
}

// MulScalarPointResult returns scalar*point using one point Beaver
// triple drawn from the preprocessing source, with no MAC attached to
// either operand or the result. This is the point-layer counterpart
// of MulScalarResult, and exists for the same reason:
// ShareAuthenticatedPoint uses it to compute a shared point's own MAC
// (k times the point share) before either operand has a MAC of its
// own.
//
// As in MulScalarResult, there is no public modifier here to absorb
// an uneven split of the public cross term d*eG, so it is added to
// party 0's share only.
func MulScalarPointResult(f *Fabric, scalar MpcScalarResult, point MpcPointResult) (MpcPointResult, error) {
	t, err := f.NextAuthenticatedTriple()
	if err != nil {
		return MpcPointResult{}, err
	}
	ta := MpcScalarResult{Share: f.wrapScalar(t.A)}
	tbG := MpcPointResult{Share: f.wrapPoint(t.BPoint)}
	tcG := MpcPointResult{Share: f.wrapPoint(t.C)}

	dShare := f.NewGateOp([]ResultId{scalar.Share.id, ta.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Sub(args[0].Scalar(), args[1].Scalar())), nil
	})
	eShare := f.NewGateOp([]ResultId{point.Share.id, tbG.Share.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Sub(args[0].Point(), args[1].Point())), nil
	})

	dH := (MpcScalarResult{Share: dShare}).Open()
	eH := (MpcPointResult{Share: eShare}).Open()

	ctx := context.Background()
	d, err := dH.AwaitScalar(ctx)
	if err != nil {
		return MpcPointResult{}, err
	}
	eGVal, err := eH.Await(ctx)
	if err != nil {
		return MpcPointResult{}, err
	}
	eG := eGVal.Point()

	result := f.NewGateOp([]ResultId{tbG.Share.id, ta.Share.id, tcG.Share.id},
		func(args []Value) (Value, error) {
			bG := args[0].Point()
			aShare := args[1].Scalar()
			cG := args[2].Point()
			term := curve.Add(curve.Add(curve.ScalarMul(d, bG), curve.ScalarMul(aShare, eG)), cG)
			if f.party == Party0 {
				term = curve.Add(term, curve.ScalarMul(d, eG))
			}
			return PointValue(term), nil
		})
	return MpcPointResult{Share: result}, nil
}
