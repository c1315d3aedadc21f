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

// ResultHandle is a future carrying a result id and a reference to
// the owning fabric, per spec.md §4.2. Handles are cheap value types
// that may be freely copied; they are not resources.
type ResultHandle struct {
	id ResultId
	f  *Fabric
}

// ID returns the handle's result id.
func (h ResultHandle) ID() ResultId {
	return h.id
}

// Poll returns the handle's value without blocking; ok is false if
// the result has not yet been fulfilled.
func (h ResultHandle) Poll() (Value, bool) {
	return h.f.buf.get(h.id)
}

// Await blocks until the handle's value is fulfilled or ctx is
// canceled. Polling never blocks the executor: the waker channel is
// registered against the buffer and closed by the executor's
// fulfilment step with no locks held across the wake (spec.md §4.2).
func (h ResultHandle) Await(ctx context.Context) (Value, error) {
	if v, ok := h.Poll(); ok {
		return v, nil
	}

	ch := make(chan struct{})
	if v, ok := h.f.buf.registerWaker(h.id, ch); ok {
		return v, nil
	}

	select {
	case <-ch:
		v, ok := h.Poll()
		if !ok {
			return Value{}, &ProgrammerError{
				Op:  "ResultHandle.Await",
				Msg: "waker fired before result was complete",
			}
		}
		return v, nil
	case <-ctx.Done():
		return Value{}, ctx.Err()
	case <-h.f.executor.done:
		if h.f.executor.err != nil {
			return Value{}, h.f.executor.err
		}
		return Value{}, &NetworkError{Msg: "fabric shut down before result was fulfilled"}
	}
}

// AwaitScalar is a convenience wrapper around Await that coerces the
// result to a field element.
func (h ResultHandle) AwaitScalar(ctx context.Context) (field.Element, error) {
	v, err := h.Await(ctx)
	if err != nil {
		return field.Element{}, err
	}
	return v.Scalar(), nil
}
