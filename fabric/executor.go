//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import "sync"

// executorEvent is one of the three events the executor drains, per
// spec.md §4.1.
type executorEvent struct {
	op       *Operation
	result   *OpResult
	shutdown bool
}

// outboundMsg is a payload queued for the network sender, tagged by
// the local result id it was produced for.
type outboundMsg struct {
	ID      ResultId
	Payload Value
}

// executor owns the result buffer and the dependency graph; it is
// the single writer required by spec.md §5.
type executor struct {
	buf      *buffer
	outbound *unboundedQueue[outboundMsg]
	queue    *unboundedQueue[executorEvent]

	// ops is touched only from the executor's own goroutine.
	ops map[OperationId]*Operation

	errOnce sync.Once
	err     error
	done    chan struct{}
}

func newExecutor(buf *buffer, outbound *unboundedQueue[outboundMsg]) *executor {
	return &executor{
		buf:      buf,
		outbound: outbound,
		queue:    newUnboundedQueue[executorEvent](),
		ops:      make(map[OperationId]*Operation),
		done:     make(chan struct{}),
	}
}

// submitOp enqueues a newly declared operation.
func (e *executor) submitOp(op *Operation) {
	e.queue.push(executorEvent{op: op})
}

// submitResult enqueues an externally completed result: a payload
// received from the network, or a value fulfilled out of band.
func (e *executor) submitResult(r OpResult) {
	e.queue.push(executorEvent{result: &r})
}

// shutdown terminates the executor loop. Outstanding handles never
// resolve, per spec.md §4.1.
func (e *executor) shutdown() {
	e.queue.push(executorEvent{shutdown: true})
}

// Err returns the fatal error that stopped the executor, if any.
func (e *executor) Err() error {
	<-e.done
	return e.err
}

func (e *executor) fail(err error) {
	e.errOnce.Do(func() {
		e.err = err
		close(e.done)
	})
}

// run drains the executor's event queue until shutdown or a fatal
// error. It is meant to be run on its own goroutine for the lifetime
// of the fabric.
func (e *executor) run() {
	defer e.errOnce.Do(func() { close(e.done) })

	for {
		ev, ok := e.queue.pop()
		if !ok || ev.shutdown {
			return
		}
		if ev.op != nil {
			if err := e.handleOp(ev.op); err != nil {
				e.fail(err)
				return
			}
		}
		if ev.result != nil {
			if err := e.handleResult(*ev.result); err != nil {
				e.fail(err)
				return
			}
		}
	}
}

func (e *executor) handleOp(op *Operation) error {
	e.ops[op.ID] = op

	for i, argID := range op.Args {
		val, complete := e.buf.get(argID)
		if complete {
			op.bound[i] = val
			continue
		}
		op.inflight++
		e.buf.addDependent(argID, op.ID)
	}

	if op.inflight == 0 {
		return e.dispatch(op)
	}
	return nil
}

func (e *executor) handleResult(r OpResult) error {
	return e.fulfill(r.ID, r.Value)
}

func (e *executor) dispatch(op *Operation) error {
	switch op.Type {
	case OpGate:
		val, err := op.Gate(op.bound)
		if err != nil {
			return err
		}
		return e.fulfill(op.FirstResultID, val)

	case OpGateBatch:
		vals, err := op.BatchGate(op.bound)
		if err != nil {
			return err
		}
		if len(vals) != op.OutputArity {
			return &ProgrammerError{
				Op: "executor.dispatch",
				Msg: "batch gate produced wrong number of results",
			}
		}
		for i, v := range vals {
			if err := e.fulfill(op.FirstResultID+ResultId(i), v); err != nil {
				return err
			}
		}
		return nil

	case OpNetwork:
		payload, err := op.Network(op.bound)
		if err != nil {
			return err
		}
		e.outbound.push(outboundMsg{ID: op.FirstResultID, Payload: payload})
		return nil

	default:
		return &ProgrammerError{Op: "executor.dispatch", Msg: "unknown op type"}
	}
}

func (e *executor) fulfill(id ResultId, value Value) error {
	deps, wakers := e.buf.complete(id, value)
	wake(wakers)

	for _, depID := range deps {
		op, found := e.ops[depID]
		if !found {
			return &ProgrammerError{
				Op:  "executor.fulfill",
				Msg: "dependent operation vanished",
			}
		}
		for i, argID := range op.Args {
			if argID == id {
				op.bound[i] = value
			}
		}
		op.inflight--
		if op.inflight == 0 {
			if err := e.dispatch(op); err != nil {
				return err
			}
		}
	}
	return nil
}
