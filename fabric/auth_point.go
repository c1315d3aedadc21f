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

// AuthenticatedPoint is the point-layer analogue of
// AuthenticatedScalar: a shared curve point with a shared MAC and a
// plaintext public modifier (spec.md §3).
type AuthenticatedPoint struct {
	Share          ResultHandle
	Mac            ResultHandle
	PublicModifier curve.Point
}

// ShareAuthenticatedPoint secret-shares p and derives its MAC tag
// k*p the same way ShareAuthenticatedScalar does at the scalar layer:
// k is only ever held as two additive shares, so the MAC has to come
// from a real scalar*point multiplication between the shared key and
// the freshly shared point (MulScalarPointResult), not from each
// party multiplying its own key share against the plaintext point.
func (f *Fabric) ShareAuthenticatedPoint(p curve.Point, owner int) (AuthenticatedPoint, error) {
	share, err := f.SharePoint(p, owner)
	if err != nil {
		return AuthenticatedPoint{}, err
	}

	key := MpcScalarResult{Share: f.wrapScalar(f.macKeyShare)}
	mac, err := MulScalarPointResult(f, key, share)
	if err != nil {
		return AuthenticatedPoint{}, err
	}

	return AuthenticatedPoint{
		Share:          share.Share,
		Mac:            mac.Share,
		PublicModifier: curve.Identity(),
	}, nil
}

// AllocatePresharedPoint wraps result ids for a share and MAC
// established out of band.
func (f *Fabric) AllocatePresharedPoint(share, mac ResultId) AuthenticatedPoint {
	return AuthenticatedPoint{
		Share:          f.handle(share),
		Mac:            f.handle(mac),
		PublicModifier: curve.Identity(),
	}
}

// AddPublicPoint returns x+c for a publicly known point c.
func (x AuthenticatedPoint) AddPublicPoint(f *Fabric, c curve.Point) AuthenticatedPoint {
	share := f.NewGateOp([]ResultId{x.Share.id}, func(args []Value) (Value, error) {
		p := args[0].Point()
		if f.party == Party0 {
			p = curve.Add(p, c)
		}
		return PointValue(p), nil
	})
	return AuthenticatedPoint{
		Share:          share,
		Mac:            x.Mac,
		PublicModifier: curve.Sub(x.PublicModifier, c),
	}
}

// SubPublicPoint returns x-c for a publicly known point c.
func (x AuthenticatedPoint) SubPublicPoint(f *Fabric, c curve.Point) AuthenticatedPoint {
	return x.AddPublicPoint(f, curve.Neg(c))
}

// Add returns x+y, componentwise and purely local.
func (x AuthenticatedPoint) Add(f *Fabric, y AuthenticatedPoint) AuthenticatedPoint {
	share := f.NewGateOp([]ResultId{x.Share.id, y.Share.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Add(args[0].Point(), args[1].Point())), nil
	})
	mac := f.NewGateOp([]ResultId{x.Mac.id, y.Mac.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Add(args[0].Point(), args[1].Point())), nil
	})
	return AuthenticatedPoint{
		Share:          share,
		Mac:            mac,
		PublicModifier: curve.Add(x.PublicModifier, y.PublicModifier),
	}
}

// Sub returns x-y.
func (x AuthenticatedPoint) Sub(f *Fabric, y AuthenticatedPoint) AuthenticatedPoint {
	return x.Add(f, y.Neg(f))
}

// Neg returns -x, negating the public modifier along with the share
// and MAC so I2 keeps holding (mirrors AuthenticatedScalar.Neg; see
// spec.md §9).
func (x AuthenticatedPoint) Neg(f *Fabric) AuthenticatedPoint {
	share := f.NewGateOp([]ResultId{x.Share.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Neg(args[0].Point())), nil
	})
	mac := f.NewGateOp([]ResultId{x.Mac.id}, func(args []Value) (Value, error) {
		return PointValue(curve.Neg(args[0].Point())), nil
	})
	return AuthenticatedPoint{
		Share:          share,
		Mac:            mac,
		PublicModifier: curve.Neg(x.PublicModifier),
	}
}

// MulPublicScalar returns s*x for a publicly known scalar s
// (componentwise scalar multiplication, spec.md §4.5).
func (x AuthenticatedPoint) MulPublicScalar(f *Fabric, s field.Element) AuthenticatedPoint {
	share := f.NewGateOp([]ResultId{x.Share.id}, func(args []Value) (Value, error) {
		return PointValue(curve.ScalarMul(s, args[0].Point())), nil
	})
	mac := f.NewGateOp([]ResultId{x.Mac.id}, func(args []Value) (Value, error) {
		return PointValue(curve.ScalarMul(s, args[0].Point())), nil
	})
	return AuthenticatedPoint{
		Share:          share,
		Mac:            mac,
		PublicModifier: curve.ScalarMul(s, x.PublicModifier),
	}
}

// Open reveals x without checking its MAC.
func (x AuthenticatedPoint) Open(f *Fabric) ResultHandle {
	mpc := MpcPointResult{Share: x.Share}
	return mpc.Open()
}

// AuthenticatedOpenPointResult is the future returned by
// OpenAuthenticated on an AuthenticatedPoint.
type AuthenticatedOpenPointResult struct {
	value ResultHandle
	check ResultHandle
	id    ResultId
}

// Await blocks until both the opened point and the MAC check have
// resolved.
func (r AuthenticatedOpenPointResult) Await(ctx context.Context) (curve.Point, error) {
	checkVal, err := r.check.AwaitScalar(ctx)
	if err != nil {
		return curve.Point{}, err
	}
	if !field.Equal(checkVal, field.One()) {
		return curve.Point{}, &AuthenticationError{ResultID: r.id}
	}
	v, err := r.value.Await(ctx)
	if err != nil {
		return curve.Point{}, err
	}
	return v.Point(), nil
}

// OpenAuthenticated opens x and verifies its MAC via the same
// commit-then-reveal protocol as the scalar layer, operating on
// encoded curve points instead of field elements.
func (x AuthenticatedPoint) OpenAuthenticated(f *Fabric) AuthenticatedOpenPointResult {
	opened := x.Open(f)
	modifier := x.PublicModifier

	mID := f.NewGateOp([]ResultId{opened.id, x.Mac.id}, func(args []Value) (Value, error) {
		p := args[0].Point()
		mac := args[1].Point()
		m := curve.Sub(curve.ScalarMul(f.macKeyShare, curve.Add(p, modifier)), mac)
		return PointValue(m), nil
	})

	var blinder [blinderLen]byte
	commitH := f.NewGateOp([]ResultId{mID.id}, func(args []Value) (Value, error) {
		var err error
		blinder, err = randomBlinder(defaultRand())
		if err != nil {
			return Value{}, err
		}
		d := digestOf(encodePoint(args[0].Point()), blinder)
		return digestValue(d), nil
	})

	peerCommit := f.SendValue(commitH)

	revealH := f.NewGateOp([]ResultId{mID.id, peerCommit.id}, func(args []Value) (Value, error) {
		pBytes := encodePoint(args[0].Point())
		out := make([]byte, 0, len(pBytes)+blinderLen)
		out = append(out, pBytes...)
		out = append(out, blinder[:]...)
		return BytesValue(out), nil
	})

	peerReveal := f.SendValue(revealH)

	verify := f.NewGateOp([]ResultId{mID.id, peerCommit.id, peerReveal.id},
		func(args []Value) (Value, error) {
			mi := args[0].Point()
			digestPeer, err := decodeDigest(args[1])
			if err != nil {
				return Value{}, err
			}
			b := args[2].Bytes()
			if len(b) != pointByteLen+blinderLen {
				return Value{}, &NetworkError{Msg: "truncated point commitment reveal"}
			}
			mPeer, err := decodePoint(b[:pointByteLen])
			if err != nil {
				return Value{}, err
			}
			var blinderPeer [blinderLen]byte
			copy(blinderPeer[:], b[pointByteLen:])

			ok := digestOf(b[:pointByteLen], blinderPeer) == digestPeer &&
				curve.Equal(curve.Add(mi, mPeer), curve.Identity())
			if ok {
				return ScalarValue(field.One()), nil
			}
			return ScalarValue(field.Zero()), nil
		})

	return AuthenticatedOpenPointResult{value: opened, check: verify, id: x.Share.id}
}
