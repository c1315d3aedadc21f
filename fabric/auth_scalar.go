//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"context"

	"github.com/markkurossi/starkspdz/field"
)

// AuthenticatedScalar is a SPDZ-shared field element: a share, a MAC
// share, and a plaintext public modifier accumulated by public
// constant operations (spec.md §3). The modifier is plain data
// rather than a ResultId because both parties apply identical public
// operations and so always compute the same value locally.
type AuthenticatedScalar struct {
	Share          ResultHandle
	Mac            ResultHandle
	PublicModifier field.Element
}

// ShareAuthenticatedScalar secret-shares v and derives its MAC tag
// k*v, where k is the global MAC key neither party ever holds in
// full: each party only contributes its own additive share of k
// (f.macKeyShare), so the MAC itself has to be computed as a real
// share*share multiplication between k and the freshly shared v, via
// MulScalarResult, rather than by each party locally multiplying its
// own key share against the plaintext it happens to know (spec.md
// §6.1 "share_scalar", extended with a MAC per §4.4).
func (f *Fabric) ShareAuthenticatedScalar(v field.Element, owner int) (AuthenticatedScalar, error) {
	share, err := f.ShareScalar(v, owner)
	if err != nil {
		return AuthenticatedScalar{}, err
	}

	key := MpcScalarResult{Share: f.wrapScalar(f.macKeyShare)}
	mac, err := MulScalarResult(f, key, share)
	if err != nil {
		return AuthenticatedScalar{}, err
	}

	return AuthenticatedScalar{
		Share:          share.Share,
		Mac:            mac.Share,
		PublicModifier: field.Zero(),
	}, nil
}

// AllocatePresharedScalar wraps result ids for a share and MAC that
// were established out of band.
func (f *Fabric) AllocatePresharedScalar(share, mac ResultId) AuthenticatedScalar {
	return AuthenticatedScalar{
		Share:          f.handle(share),
		Mac:            f.handle(mac),
		PublicModifier: field.Zero(),
	}
}

// AddPublicScalar returns x+c for a publicly known constant c
// (spec.md §4.4). Party 0's share moves by c; party 1 emits a no-op
// gate so both parties allocate the same number of result ids.
func (x AuthenticatedScalar) AddPublicScalar(f *Fabric, c field.Element) AuthenticatedScalar {
	share := f.NewGateOp([]ResultId{x.Share.id}, func(args []Value) (Value, error) {
		s := args[0].Scalar()
		if f.party == Party0 {
			s = field.Add(s, c)
		}
		return ScalarValue(s), nil
	})
	return AuthenticatedScalar{
		Share:          share,
		Mac:            x.Mac,
		PublicModifier: field.Sub(x.PublicModifier, c),
	}
}

// SubPublicScalar returns x-c for a publicly known constant c.
func (x AuthenticatedScalar) SubPublicScalar(f *Fabric, c field.Element) AuthenticatedScalar {
	return x.AddPublicScalar(f, field.Neg(c))
}

// Add returns x+y, componentwise and purely local.
func (x AuthenticatedScalar) Add(f *Fabric, y AuthenticatedScalar) AuthenticatedScalar {
	share := f.NewGateOp([]ResultId{x.Share.id, y.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Add(args[0].Scalar(), args[1].Scalar())), nil
	})
	mac := f.NewGateOp([]ResultId{x.Mac.id, y.Mac.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Add(args[0].Scalar(), args[1].Scalar())), nil
	})
	return AuthenticatedScalar{
		Share:          share,
		Mac:            mac,
		PublicModifier: field.Add(x.PublicModifier, y.PublicModifier),
	}
}

// Sub returns x-y, componentwise and purely local.
func (x AuthenticatedScalar) Sub(f *Fabric, y AuthenticatedScalar) AuthenticatedScalar {
	return x.Add(f, y.Neg(f))
}

// Neg returns -x. The public modifier is also negated so that
// invariant I2 (mac = k*(value+modifier)) continues to hold; see
// spec.md §9's open question on this point.
func (x AuthenticatedScalar) Neg(f *Fabric) AuthenticatedScalar {
	share := f.NewGateOp([]ResultId{x.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Neg(args[0].Scalar())), nil
	})
	mac := f.NewGateOp([]ResultId{x.Mac.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Neg(args[0].Scalar())), nil
	})
	return AuthenticatedScalar{
		Share:          share,
		Mac:            mac,
		PublicModifier: field.Neg(x.PublicModifier),
	}
}

// MulPublicScalar returns s*x for a publicly known scalar s.
func (x AuthenticatedScalar) MulPublicScalar(f *Fabric, s field.Element) AuthenticatedScalar {
	share := f.NewGateOp([]ResultId{x.Share.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Mul(s, args[0].Scalar())), nil
	})
	mac := f.NewGateOp([]ResultId{x.Mac.id}, func(args []Value) (Value, error) {
		return ScalarValue(field.Mul(s, args[0].Scalar())), nil
	})
	return AuthenticatedScalar{
		Share:          share,
		Mac:            mac,
		PublicModifier: field.Mul(s, x.PublicModifier),
	}
}

// Open reveals x without checking its MAC (spec.md §4.4 "Opening").
func (x AuthenticatedScalar) Open(f *Fabric) ResultHandle {
	mpc := MpcScalarResult{Share: x.Share}
	return mpc.Open()
}

// AuthenticatedOpenScalarResult is the future returned by
// OpenAuthenticated: the opened plaintext value together with the
// MAC-check outcome.
type AuthenticatedOpenScalarResult struct {
	value ResultHandle
	check ResultHandle
	id    ResultId
}

// Await blocks until both the opened value and the MAC check have
// resolved, returning an AuthenticationError if the check failed.
func (r AuthenticatedOpenScalarResult) Await(ctx context.Context) (field.Element, error) {
	checkVal, err := r.check.AwaitScalar(ctx)
	if err != nil {
		return field.Element{}, err
	}
	if !field.Equal(checkVal, field.One()) {
		return field.Element{}, &AuthenticationError{ResultID: r.id}
	}
	return r.value.AwaitScalar(ctx)
}

// OpenAuthenticated opens x and verifies its MAC via the
// commit-then-reveal protocol of spec.md §4.4.
func (x AuthenticatedScalar) OpenAuthenticated(f *Fabric) AuthenticatedOpenScalarResult {
	opened := x.Open(f)
	modifier := x.PublicModifier

	mID := f.NewGateOp([]ResultId{opened.id, x.Mac.id}, func(args []Value) (Value, error) {
		v := args[0].Scalar()
		mac := args[1].Scalar()
		m := field.Sub(field.Mul(f.macKeyShare, field.Add(v, modifier)), mac)
		return ScalarValue(m), nil
	})

	var blinder [blinderLen]byte
	commitH := f.NewGateOp([]ResultId{mID.id}, func(args []Value) (Value, error) {
		var err error
		blinder, err = randomBlinder(defaultRand())
		if err != nil {
			return Value{}, err
		}
		d := digestOf(args[0].Scalar().Bytes(), blinder)
		return digestValue(d), nil
	})

	peerCommit := f.SendValue(commitH)

	revealH := f.NewGateOp([]ResultId{mID.id, peerCommit.id}, func(args []Value) (Value, error) {
		return encodeScalarReveal(args[0].Scalar(), blinder), nil
	})

	peerReveal := f.SendValue(revealH)

	verify := f.NewGateOp([]ResultId{mID.id, peerCommit.id, peerReveal.id},
		func(args []Value) (Value, error) {
			mi := args[0].Scalar()
			digestPeer, err := decodeDigest(args[1])
			if err != nil {
				return Value{}, err
			}
			mPeer, blinderPeer, err := decodeScalarReveal(args[2])
			if err != nil {
				return Value{}, err
			}
			ok := digestOf(mPeer.Bytes(), blinderPeer) == digestPeer &&
				field.IsZero(field.Add(mi, mPeer))
			if ok {
				return ScalarValue(field.One()), nil
			}
			return ScalarValue(field.Zero()), nil
		})

	return AuthenticatedOpenScalarResult{value: opened, check: verify, id: x.Share.id}
}

// OpenAuthenticatedScalarBatch opens a batch of authenticated scalars
// with a single round of commitments and a single round of reveals,
// per spec.md §4.4 "Authenticated opening (batched)".
func OpenAuthenticatedScalarBatch(f *Fabric, xs []AuthenticatedScalar) ([]AuthenticatedOpenScalarResult, error) {
	n := len(xs)
	if n == 0 {
		return nil, &ProgrammerError{Op: "OpenAuthenticatedScalarBatch", Msg: "empty batch"}
	}

	opened := make([]ResultHandle, n)
	macArgs := make([]ResultId, 0, 2*n)
	modifiers := make([]field.Element, n)
	for i, x := range xs {
		opened[i] = MpcScalarResult{Share: x.Share}.Open()
		macArgs = append(macArgs, opened[i].id, x.Mac.id)
		modifiers[i] = x.PublicModifier
	}

	mBatch := f.NewBatchGateOp(macArgs, n, func(args []Value) ([]Value, error) {
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			v := args[2*i].Scalar()
			mac := args[2*i+1].Scalar()
			m := field.Sub(field.Mul(f.macKeyShare, field.Add(v, modifiers[i])), mac)
			out[i] = ScalarValue(m)
		}
		return out, nil
	})

	mArgs := make([]ResultId, n)
	for i := range mBatch {
		mArgs[i] = mBatch[i].id
	}

	var blinder [blinderLen]byte
	commitH := f.NewGateOp(mArgs, func(args []Value) (Value, error) {
		vals := make([]field.Element, n)
		payload := make([]byte, 0, n*field.ByteLen)
		for i, a := range args {
			vals[i] = a.Scalar()
			payload = append(payload, vals[i].Bytes()...)
		}
		var err error
		blinder, err = randomBlinder(defaultRand())
		if err != nil {
			return Value{}, err
		}
		d := digestOf(payload, blinder)
		return digestValue(d), nil
	})

	peerCommit := f.SendValue(commitH)

	revealArgs := append(append([]ResultId{}, mArgs...), peerCommit.id)
	revealH := f.NewGateOp(revealArgs, func(args []Value) (Value, error) {
		vals := make([]field.Element, n)
		for i := 0; i < n; i++ {
			vals[i] = args[i].Scalar()
		}
		return encodeScalarBatchReveal(vals, blinder), nil
	})

	peerReveal := f.SendValue(revealH)

	verifyArgs := append(append([]ResultId{}, mArgs...), peerCommit.id, peerReveal.id)
	verify := f.NewGateOp(verifyArgs, func(args []Value) (Value, error) {
		digestPeer, err := decodeDigest(args[n])
		if err != nil {
			return Value{}, err
		}
		mPeer, blinderPeer, err := decodeScalarBatchReveal(args[n+1], n)
		if err != nil {
			return Value{}, err
		}
		payload := make([]byte, 0, n*field.ByteLen)
		allZero := true
		for i := 0; i < n; i++ {
			mi := args[i].Scalar()
			payload = append(payload, mPeer[i].Bytes()...)
			if !field.IsZero(field.Add(mi, mPeer[i])) {
				allZero = false
			}
		}
		ok := digestOf(payload, blinderPeer) == digestPeer && allZero
		if ok {
			return ScalarValue(field.One()), nil
		}
		return ScalarValue(field.Zero()), nil
	})

	out := make([]AuthenticatedOpenScalarResult, n)
	for i := 0; i < n; i++ {
		out[i] = AuthenticatedOpenScalarResult{value: opened[i], check: verify, id: xs[i].Share.id}
	}
	return out, nil
}
