//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"sync/atomic"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/field"
)

// Party identifiers.
const (
	Party0 = 0
	Party1 = 1
)

// Fabric is the consumer-facing front end: it owns the executor, the
// network sender, and the preprocessing source, and exposes the
// allocation and gate-construction primitives circuit code is built
// from (spec.md §6.1).
type Fabric struct {
	party int

	buf      *buffer
	executor *executor
	sender   *sender

	preproc Preprocessing

	nextResultID uint64
	nextOpID     uint64

	// macKeyShare is this party's additive share of the global SPDZ
	// MAC key, drawn once at construction (spec.md §6.3).
	macKeyShare field.Element
}

// New builds a fabric for the given party over transport, using
// preproc as the offline-preprocessing source. sizeHint preallocates
// the result buffer. The MAC key share is drawn from preproc as the
// very first random value.
func New(party int, transport Transport, preproc Preprocessing, sizeHint int) (*Fabric, error) {
	if party != Party0 && party != Party1 {
		return nil, &SetupError{Msg: "invalid party id"}
	}

	buf := newBuffer(sizeHint)
	buf.ensure(firstFreeResultID - 1)
	buf.complete(ResultZero, ScalarValue(field.Zero()))
	buf.complete(ResultOne, ScalarValue(field.One()))
	buf.complete(ResultIdentity, PointValue(curve.Identity()))

	outbound := newUnboundedQueue[outboundMsg]()
	exec := newExecutor(buf, outbound)
	snd := newSender(transport, outbound, exec)

	f := &Fabric{
		party:        party,
		buf:          buf,
		executor:     exec,
		sender:       snd,
		preproc:      preproc,
		nextResultID: uint64(firstFreeResultID),
	}

	k, err := preproc.NextSharedValue()
	if err != nil {
		return nil, &SetupError{Msg: "drawing MAC key share", Err: err}
	}
	f.macKeyShare = k

	go exec.run()
	go snd.run()

	return f, nil
}

// PartyID returns 0 or 1.
func (f *Fabric) PartyID() int {
	return f.party
}

// Shutdown terminates the executor and network sender. Outstanding
// handles never resolve (spec.md §4.1/§4.3).
func (f *Fabric) Shutdown() {
	f.executor.shutdown()
	f.sender.shutdown()
}

// Err blocks until the fabric has stopped and returns the fatal
// error that stopped it, if any.
func (f *Fabric) Err() error {
	return f.executor.Err()
}

func (f *Fabric) allocResultID() ResultId {
	return ResultId(atomic.AddUint64(&f.nextResultID, 1) - 1)
}

func (f *Fabric) allocOpID() OperationId {
	return OperationId(atomic.AddUint64(&f.nextOpID, 1) - 1)
}

func (f *Fabric) handle(id ResultId) ResultHandle {
	return ResultHandle{id: id, f: f}
}

// Zero returns the handle for the public constant 0.
func (f *Fabric) Zero() ResultHandle {
	return f.handle(ResultZero)
}

// One returns the handle for the public constant 1.
func (f *Fabric) One() ResultHandle {
	return f.handle(ResultOne)
}

// CurveIdentity returns the handle for the curve's identity point.
func (f *Fabric) CurveIdentity() ResultHandle {
	return f.handle(ResultIdentity)
}

// NewGateOp declares a local, pure, single-output operation over
// args and submits it to the executor. Both parties must call this
// at the same point in otherwise-identical code so that result ids
// stay aligned (spec.md §4.3, §9).
func (f *Fabric) NewGateOp(args []ResultId, fn GateFunc) ResultHandle {
	id := f.allocResultID()
	op := newOperation(f.allocOpID(), id, args)
	op.Type = OpGate
	op.Gate = fn
	f.executor.submitOp(op)
	return f.handle(id)
}

// NewBatchGateOp declares a local, pure, arity-output operation and
// submits it. The returned handles address FirstResultID ..
// FirstResultID+arity-1.
func (f *Fabric) NewBatchGateOp(args []ResultId, arity int, fn BatchGateFunc) []ResultHandle {
	first := f.allocResultID()
	for i := 1; i < arity; i++ {
		f.allocResultID()
	}
	op := newOperation(f.allocOpID(), first, args)
	op.Type = OpGateBatch
	op.OutputArity = arity
	op.BatchGate = fn
	f.executor.submitOp(op)

	out := make([]ResultHandle, arity)
	for i := 0; i < arity; i++ {
		out[i] = f.handle(first + ResultId(i))
	}
	return out
}

// NewNetworkOp declares an operation whose payload is sent to the
// peer; its own result id is fulfilled only by the peer's reply at
// the same id (spec.md §4.1, §4.3).
func (f *Fabric) NewNetworkOp(args []ResultId, fn NetworkFunc) ResultHandle {
	id := f.allocResultID()
	op := newOperation(f.allocOpID(), id, args)
	op.Type = OpNetwork
	op.Network = fn
	f.executor.submitOp(op)
	return f.handle(id)
}

// SendValue is a one-way network op: it sends v to the peer and its
// own local result is fulfilled by whatever the peer sends back at
// the same id (normally a matching SendValue on the peer's side, per
// the symmetric-graph-shape discipline of spec.md §9).
func (f *Fabric) SendValue(v ResultHandle) ResultHandle {
	return f.NewNetworkOp([]ResultId{v.id}, func(args []Value) (Value, error) {
		return args[0], nil
	})
}

// ReceiveValue is a placeholder network op used by the party that
// has nothing meaningful to contribute to an exchange; it sends a
// harmless zero payload and yields whatever the peer actually sent.
func (f *Fabric) ReceiveValue() ResultHandle {
	return f.NewNetworkOp(nil, func(args []Value) (Value, error) {
		return ScalarValue(field.Zero()), nil
	})
}

// ExchangeValue is SendValue under another name: both parties issue
// the same single network op, each sends its own value, and each
// side's result resolves to the peer's value. The send/receive order
// does not depend on the party's role.
func (f *Fabric) ExchangeValue(v ResultHandle) ResultHandle {
	return f.SendValue(v)
}

// SharePlaintext allocates a publicly known value as a local constant
// gate. Nothing is sent to the peer: each party gets the v it passed
// itself, so both parties must pass the same v.
func (f *Fabric) SharePlaintext(v Value) ResultHandle {
	return f.NewGateOp(nil, func(args []Value) (Value, error) {
		return v, nil
	})
}

// NextBeaverTriple draws the next scalar Beaver triple from the
// preprocessing source.
func (f *Fabric) NextBeaverTriple() (ScalarTriple, error) {
	return f.preproc.NextTriple()
}

// NextBeaverTripleBatch draws n scalar Beaver triples.
func (f *Fabric) NextBeaverTripleBatch(n int) ([]ScalarTriple, error) {
	return f.preproc.NextTripleBatch(n)
}

// NextAuthenticatedTriple draws the next point Beaver triple.
func (f *Fabric) NextAuthenticatedTriple() (PointTriple, error) {
	return f.preproc.NextPointTriple()
}

// NextAuthenticatedTripleBatch draws n point Beaver triples.
func (f *Fabric) NextAuthenticatedTripleBatch(n int) ([]PointTriple, error) {
	return f.preproc.NextPointTripleBatch(n)
}

// RandomSharedScalar draws this party's share of a fresh jointly
// generated random scalar.
func (f *Fabric) RandomSharedScalar() (field.Element, error) {
	return f.preproc.NextSharedValue()
}

// RandomSharedBit draws this party's share of a fresh jointly
// generated random bit.
func (f *Fabric) RandomSharedBit() (field.Element, error) {
	return f.preproc.NextSharedBit()
}

// RandomInversePair draws this party's share of a fresh pair
// (r, r^-1).
func (f *Fabric) RandomInversePair() (field.Element, field.Element, error) {
	return f.preproc.NextSharedInversePair()
}
