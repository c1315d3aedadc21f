//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import "sync"

// sender drives a Transport: it serializes outbound gate payloads in
// dispatch order and routes inbound payloads into the executor's
// queue as completed results (spec.md §4.3).
type sender struct {
	transport Transport
	outbound  *unboundedQueue[outboundMsg]
	exec      *executor

	closeOnce sync.Once
	stop      chan struct{}
	stopped   chan struct{}
}

func newSender(t Transport, outbound *unboundedQueue[outboundMsg], exec *executor) *sender {
	return &sender{
		transport: t,
		outbound:  outbound,
		exec:      exec,
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// run starts the outbound and inbound loops and blocks until both
// exit. Callers typically invoke this on its own goroutine.
func (s *sender) run() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.outboundLoop()
	}()
	go func() {
		defer wg.Done()
		s.inboundLoop()
	}()

	wg.Wait()
	close(s.stopped)
}

// outboundLoop writes queued payloads to the transport in the exact
// order they were submitted. This is the core ordering invariant of
// spec.md §4.3: local dispatch order of Network ops must equal
// submission order here, which it does because both the executor and
// this loop treat the queue as FIFO.
func (s *sender) outboundLoop() {
	for {
		msg, ok := s.outbound.pop()
		if !ok {
			return
		}
		if err := s.transport.Send(Message{ID: msg.ID, Payload: msg.Payload}); err != nil {
			s.exec.fail(err)
			s.shutdown()
			return
		}
		if err := s.transport.Flush(); err != nil {
			s.exec.fail(err)
			s.shutdown()
			return
		}
		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// inboundLoop reads framed messages and pushes them onto the
// executor's queue as completed results.
func (s *sender) inboundLoop() {
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		msg, err := s.transport.Receive()
		if err != nil {
			s.exec.fail(err)
			s.shutdown()
			return
		}
		s.exec.submitResult(OpResult{ID: msg.ID, Value: msg.Payload})
	}
}

// shutdown terminates both loops and closes the transport. Besides
// the external call from Fabric.Shutdown, outboundLoop and
// inboundLoop call this themselves on a fatal transport error so the
// other loop and the transport don't leak: closing s.stop signals the
// peer loop's next select check, and closing the outbound queue wakes
// outboundLoop out of a blocked pop() if it's the one still running.
func (s *sender) shutdown() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.outbound.close()
		_ = s.transport.Close()
	})
}
