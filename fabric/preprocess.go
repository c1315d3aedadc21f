//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"io"
	"sync"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/field"
)

// ScalarTriple is this party's share of an authenticated Beaver
// triple (a, b, c) with c = a*b, consumed by scalar*scalar
// multiplication (spec.md §4.5). The Mac fields are this party's
// share of k*a, k*b, k*c under the same global MAC key used
// everywhere else, so that a multiplication's result can carry a
// correct MAC derived purely from local linear combinations.
type ScalarTriple struct {
	A, B, C          field.Element
	MacA, MacB, MacC field.Element
}

// PointTriple is this party's share of a Beaver triple used for
// authenticated-scalar times authenticated-point multiplication: A
// is a scalar share; BPoint is the curve companion b*G and C is
// (a*b)*G, both themselves authenticated (spec.md §4.5).
type PointTriple struct {
	A    field.Element
	AMac field.Element

	BPoint    curve.Point
	BPointMac curve.Point

	C    curve.Point
	CMac curve.Point
}

// Preprocessing is the offline-preprocessing collaborator that
// spec.md §6.3 leaves external to the core: a source of this
// party's shares of jointly generated random values, Beaver triples,
// shared bits, and inverse pairs. Implementations MUST be
// coordinated with the peer's source so that the n-th draw on both
// sides refers to the same jointly generated value. The very first
// NextSharedValue draw is, by fabric construction (spec.md §6.3),
// the global MAC key share.
type Preprocessing interface {
	NextSharedValue() (field.Element, error)
	NextSharedValueBatch(n int) ([]field.Element, error)

	NextTriple() (ScalarTriple, error)
	NextTripleBatch(n int) ([]ScalarTriple, error)

	NextPointTriple() (PointTriple, error)
	NextPointTripleBatch(n int) ([]PointTriple, error)

	NextSharedBit() (field.Element, error)
	NextSharedBitBatch(n int) ([]field.Element, error)

	NextSharedInversePair() (r, rInv field.Element, err error)
	NextSharedInversePairBatch(n int) (r, rInv []field.Element, err error)
}

// errExhausted reports a preprocessing source running out of
// prepared material; per spec.md §7 this is a ProgrammerError.
func errExhausted(op string) error {
	return &ProgrammerError{Op: op, Msg: "preprocessing source exhausted"}
}

// dealerCore is the shared state behind a pair of DealerPreprocessing
// views. A real SPDZ preprocessing source coordinates two
// out-of-process parties via a cryptographic protocol (see
// preprocess_ot.go for the OT-backed version); a single in-process
// trusted dealer has no need for that — it generates each secret
// once and caches both parties' shares, so whichever party's source
// is pulled first produces the material and the other simply reads
// the cached complementary share. This mirrors how
// crypto/spdz_test.go drives both peers of a two-party protocol from
// one goroutine pair over a single p2p.Pipe(): one test process, two
// logical parties.
//
// macKey holds the dealer's own record of the clear MAC key once the
// first NextSharedValue draw has produced it, so that later triple
// generation can hand out triples whose MACs are consistent with the
// key both fabrics will end up holding shares of.
type dealerCore struct {
	mu  sync.Mutex
	rng io.Reader

	macKey    field.Element
	macKeySet bool

	values       [][2]field.Element
	triples      [][2]ScalarTriple
	pointTriples [][2]PointTriple
	bits         [][2]field.Element
	invPairsR    [][2]field.Element
	invPairsInv  [][2]field.Element
}

// DealerPreprocessing is a reference/test Preprocessing
// implementation driven by a single shared seed plus a counter, as
// spec.md §6.3 and §9 describe: "typically a deterministic shared
// seed plus a counter". It is NOT a secure distributed protocol —
// see dealerCore. Use NewDealerPair to obtain the two mutually
// consistent party-side views.
type DealerPreprocessing struct {
	core *dealerCore
	self int

	idxValue       int
	idxTriple      int
	idxPointTriple int
	idxBit         int
	idxInv         int
}

// NewDealerPair returns the two parties' Preprocessing sources, both
// backed by the same dealer state and driven by rng. Callers must
// draw from the two sources in the same relative order they would in
// a real distributed run (spec.md's "Beaver source ... consumed in
// the same order on both parties"); it is the caller's
// responsibility to keep both parties' draws aligned, exactly as two
// real parties must.
func NewDealerPair(rng io.Reader) (p0, p1 *DealerPreprocessing) {
	core := &dealerCore{rng: rng}
	return &DealerPreprocessing{core: core, self: 0},
		&DealerPreprocessing{core: core, self: 1}
}

func splitElement(rng io.Reader, v field.Element) (share0, share1 field.Element, err error) {
	s0, err := field.Random(rng)
	if err != nil {
		return field.Element{}, field.Element{}, err
	}
	return s0, field.Sub(v, s0), nil
}

func splitPoint(rng io.Reader, p curve.Point) (p0, p1 curve.Point, err error) {
	s, err := field.Random(rng)
	if err != nil {
		return curve.Point{}, curve.Point{}, err
	}
	share0 := curve.Embed(s)
	return share0, curve.Sub(p, share0), nil
}

// NextSharedValue draws this party's share of a freshly generated
// uniformly random field element. No interaction is required to
// produce a random additive sharing: as long as at least one share
// is uniform the sum is uniform, so each party may draw its own
// independent uniform share without coordinating with the peer at
// all (spec.md §6.3's "random shared scalar"). The dealer still
// caches a matching pair so both DealerPreprocessing views agree on
// which draw is which, for API symmetry with the coordinated
// resources below. The very first value generated becomes the
// dealer's record of the clear MAC key.
func (d *DealerPreprocessing) NextSharedValue() (field.Element, error) {
	vs, err := d.NextSharedValueBatch(1)
	if err != nil {
		return field.Element{}, err
	}
	return vs[0], nil
}

// NextSharedValueBatch is the batched form of NextSharedValue.
func (d *DealerPreprocessing) NextSharedValueBatch(n int) ([]field.Element, error) {
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		d.core.mu.Lock()
		for d.idxValue >= len(d.core.values) {
			v, err := field.Random(d.core.rng)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			if !d.core.macKeySet {
				d.core.macKey = v
				d.core.macKeySet = true
			}
			s0, s1, err := splitElement(d.core.rng, v)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			d.core.values = append(d.core.values, [2]field.Element{s0, s1})
		}
		out[i] = d.core.values[d.idxValue][d.self]
		d.idxValue++
		d.core.mu.Unlock()
	}
	return out, nil
}

// NextTriple draws this party's share of a fresh authenticated
// Beaver triple (a, b, c=a*b).
func (d *DealerPreprocessing) NextTriple() (ScalarTriple, error) {
	ts, err := d.NextTripleBatch(1)
	if err != nil {
		return ScalarTriple{}, err
	}
	return ts[0], nil
}

// NextTripleBatch is the batched form of NextTriple.
func (d *DealerPreprocessing) NextTripleBatch(n int) ([]ScalarTriple, error) {
	out := make([]ScalarTriple, n)
	for i := 0; i < n; i++ {
		d.core.mu.Lock()
		for d.idxTriple >= len(d.core.triples) {
			if !d.core.macKeySet {
				d.core.mu.Unlock()
				return nil, &SetupError{Msg: "MAC key not yet established"}
			}
			k := d.core.macKey

			a, err := field.Random(d.core.rng)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			b, err := field.Random(d.core.rng)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			c := field.Mul(a, b)

			a0, a1, err := splitElement(d.core.rng, a)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			b0, b1, err := splitElement(d.core.rng, b)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			c0, c1, err := splitElement(d.core.rng, c)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			macA0, macA1, err := splitElement(d.core.rng, field.Mul(k, a))
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			macB0, macB1, err := splitElement(d.core.rng, field.Mul(k, b))
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			macC0, macC1, err := splitElement(d.core.rng, field.Mul(k, c))
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			d.core.triples = append(d.core.triples, [2]ScalarTriple{
				{A: a0, B: b0, C: c0, MacA: macA0, MacB: macB0, MacC: macC0},
				{A: a1, B: b1, C: c1, MacA: macA1, MacB: macB1, MacC: macC1},
			})
		}
		out[i] = d.core.triples[d.idxTriple][d.self]
		d.idxTriple++
		d.core.mu.Unlock()
	}
	return out, nil
}

// NextPointTriple draws this party's share of a fresh authenticated
// point-Beaver triple (a, bG, c*G=a*bG).
func (d *DealerPreprocessing) NextPointTriple() (PointTriple, error) {
	ts, err := d.NextPointTripleBatch(1)
	if err != nil {
		return PointTriple{}, err
	}
	return ts[0], nil
}

// NextPointTripleBatch is the batched form of NextPointTriple.
func (d *DealerPreprocessing) NextPointTripleBatch(n int) ([]PointTriple, error) {
	out := make([]PointTriple, n)
	for i := 0; i < n; i++ {
		d.core.mu.Lock()
		for d.idxPointTriple >= len(d.core.pointTriples) {
			if !d.core.macKeySet {
				d.core.mu.Unlock()
				return nil, &SetupError{Msg: "MAC key not yet established"}
			}
			k := d.core.macKey

			a, err := field.Random(d.core.rng)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			b, err := field.Random(d.core.rng)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			c := field.Mul(a, b)
			bG := curve.Embed(b)
			cG := curve.Embed(c)
			macBG := curve.ScalarMul(k, bG)
			macCG := curve.ScalarMul(k, cG)

			a0, a1, err := splitElement(d.core.rng, a)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			macA0, macA1, err := splitElement(d.core.rng, field.Mul(k, a))
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			bG0, bG1, err := splitPoint(d.core.rng, bG)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			macBG0, macBG1, err := splitPoint(d.core.rng, macBG)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			cG0, cG1, err := splitPoint(d.core.rng, cG)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			macCG0, macCG1, err := splitPoint(d.core.rng, macCG)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			d.core.pointTriples = append(d.core.pointTriples, [2]PointTriple{
				{A: a0, AMac: macA0, BPoint: bG0, BPointMac: macBG0, C: cG0, CMac: macCG0},
				{A: a1, AMac: macA1, BPoint: bG1, BPointMac: macBG1, C: cG1, CMac: macCG1},
			})
		}
		out[i] = d.core.pointTriples[d.idxPointTriple][d.self]
		d.idxPointTriple++
		d.core.mu.Unlock()
	}
	return out, nil
}

// NextSharedBit draws this party's share of a fresh shared bit, 0 or
// 1 in the clear.
func (d *DealerPreprocessing) NextSharedBit() (field.Element, error) {
	bits, err := d.NextSharedBitBatch(1)
	if err != nil {
		return field.Element{}, err
	}
	return bits[0], nil
}

// NextSharedBitBatch is the batched form of NextSharedBit.
func (d *DealerPreprocessing) NextSharedBitBatch(n int) ([]field.Element, error) {
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		d.core.mu.Lock()
		for d.idxBit >= len(d.core.bits) {
			var raw [1]byte
			if _, err := io.ReadFull(d.core.rng, raw[:]); err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			bit := field.FromInt64(int64(raw[0] & 1))

			s0, s1, err := splitElement(d.core.rng, bit)
			if err != nil {
				d.core.mu.Unlock()
				return nil, err
			}
			d.core.bits = append(d.core.bits, [2]field.Element{s0, s1})
		}
		out[i] = d.core.bits[d.idxBit][d.self]
		d.idxBit++
		d.core.mu.Unlock()
	}
	return out, nil
}

// NextSharedInversePair draws this party's share of a fresh pair
// (r, r^-1) with r uniformly random and nonzero.
func (d *DealerPreprocessing) NextSharedInversePair() (field.Element, field.Element, error) {
	rs, invs, err := d.NextSharedInversePairBatch(1)
	if err != nil {
		return field.Element{}, field.Element{}, err
	}
	return rs[0], invs[0], nil
}

// NextSharedInversePairBatch is the batched form of
// NextSharedInversePair.
func (d *DealerPreprocessing) NextSharedInversePairBatch(n int) ([]field.Element, []field.Element, error) {
	rOut := make([]field.Element, n)
	invOut := make([]field.Element, n)
	for i := 0; i < n; i++ {
		d.core.mu.Lock()
		for d.idxInv >= len(d.core.invPairsR) {
			r, err := field.Random(d.core.rng)
			if err != nil {
				d.core.mu.Unlock()
				return nil, nil, err
			}
			for field.IsZero(r) {
				r, err = field.Random(d.core.rng)
				if err != nil {
					d.core.mu.Unlock()
					return nil, nil, err
				}
			}
			inv := field.Inv(r)

			r0, r1, err := splitElement(d.core.rng, r)
			if err != nil {
				d.core.mu.Unlock()
				return nil, nil, err
			}
			i0, i1, err := splitElement(d.core.rng, inv)
			if err != nil {
				d.core.mu.Unlock()
				return nil, nil, err
			}
			d.core.invPairsR = append(d.core.invPairsR, [2]field.Element{r0, r1})
			d.core.invPairsInv = append(d.core.invPairsInv, [2]field.Element{i0, i1})
		}
		rOut[i] = d.core.invPairsR[d.idxInv][d.self]
		invOut[i] = d.core.invPairsInv[d.idxInv][d.self]
		d.idxInv++
		d.core.mu.Unlock()
	}
	return rOut, invOut, nil
}
