//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

// OpType classifies an Operation's dispatch behavior, per spec.md §3.
type OpType int

// Operation kinds.
const (
	// OpGate is a pure function from bound argument values to a
	// single result value. Arity of the output is always 1.
	OpGate OpType = iota

	// OpGateBatch is a pure function from bound argument values to
	// OutputArity result values, placed at consecutive result ids
	// starting at FirstResultID.
	OpGateBatch

	// OpNetwork produces a payload that is sent to the peer; the
	// local result is fulfilled only when the peer's reply for the
	// same result id arrives over the network.
	OpNetwork
)

// GateFunc computes a single result value from an operation's bound
// arguments.
type GateFunc func(args []Value) (Value, error)

// BatchGateFunc computes an ordered sequence of result values, whose
// length must equal the operation's OutputArity.
type BatchGateFunc func(args []Value) ([]Value, error)

// NetworkFunc computes the payload that an OpNetwork operation sends
// to the peer.
type NetworkFunc func(args []Value) (Value, error)

// Operation is a node in the dependency graph: a pure function (or
// network send) from argument result values to one or more result
// values, per spec.md §3.
type Operation struct {
	ID            OperationId
	FirstResultID ResultId
	OutputArity   int
	Args          []ResultId
	Type          OpType

	Gate      GateFunc
	BatchGate BatchGateFunc
	Network   NetworkFunc

	// inflight and bound are mutated only by the executor goroutine;
	// they track how many of Args remain unresolved and the argument
	// values collected so far, in Args order.
	inflight int
	bound    []Value
}

func newOperation(id OperationId, first ResultId, args []ResultId) *Operation {
	return &Operation{
		ID:            id,
		FirstResultID: first,
		OutputArity:   1,
		Args:          args,
		bound:         make([]Value, len(args)),
	}
}
