package ofi

import "sync/atomic"

// TriggeredState is the queued -> fired/cancelled lifecycle of a deferred
// (triggered) operation.
type TriggeredState int32

const (
	TriggeredQueued TriggeredState = iota
	TriggeredFired
	TriggeredCancelled
)

// TriggeredWork is a deferred submission that fires once its gating
// Counter reaches threshold (fi_deferred_work / FI_TRIGGER), instead of
// being posted immediately. The provider interface this binding targets
// has no native cancel primitive for already-queued triggered work, so
// Cancel is advisory: it flips the local state and the wrapped operation
// checks it immediately before actually posting, closing the race for any
// trigger that hasn't fired yet without requiring provider support.
type TriggeredWork struct {
	kind  DeferredOpKind
	state atomic.Int32
}

func newTriggeredWork(kind DeferredOpKind) *TriggeredWork {
	tw := &TriggeredWork{kind: kind}
	tw.state.Store(int32(TriggeredQueued))
	return tw
}

// State returns the current lifecycle state.
func (t *TriggeredWork) State() TriggeredState {
	return TriggeredState(t.state.Load())
}

// Cancel marks the work cancelled. It has no effect if the work has
// already fired.
func (t *TriggeredWork) Cancel() {
	t.state.CompareAndSwap(int32(TriggeredQueued), int32(TriggeredCancelled))
}

func (t *TriggeredWork) guard(fn func() error) func() error {
	return func() error {
		if !t.state.CompareAndSwap(int32(TriggeredQueued), int32(TriggeredFired)) {
			return nil
		}
		return fn()
	}
}

// QueueSend queues a send to fire once trigger reaches threshold.
func (e *Endpoint) QueueSend(buf []byte, desc LocalDescriptor, destAddr FabricAddr, trigger *Counter, threshold uint64, ctx *Context) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpSend)
	op := tw.guard(func() error { return e.Send(buf, desc, destAddr, ctx) })
	if err := e.ep.QueueTriggered(op, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueSend", err)
	}
	return tw, nil
}

// QueueTaggedSend queues a tagged send to fire once trigger reaches
// threshold.
func (e *Endpoint) QueueTaggedSend(buf []byte, desc LocalDescriptor, destAddr FabricAddr, tag Tag, trigger *Counter, threshold uint64, ctx *Context) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpTSend)
	op := tw.guard(func() error { return e.TaggedSend(buf, desc, destAddr, tag, ctx) })
	if err := e.ep.QueueTriggered(op, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueTaggedSend", err)
	}
	return tw, nil
}

// QueueRead queues an RMA read to fire once trigger reaches threshold.
func (e *Endpoint) QueueRead(buf []byte, desc LocalDescriptor, srcAddr FabricAddr, target RemoteMemoryDescriptor, trigger *Counter, threshold uint64, ctx *Context) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpRead)
	op := tw.guard(func() error { return e.Read(buf, desc, srcAddr, target, ctx) })
	if err := e.ep.QueueTriggered(op, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueRead", err)
	}
	return tw, nil
}

// QueueWrite queues an RMA write to fire once trigger reaches threshold.
func (e *Endpoint) QueueWrite(buf []byte, desc LocalDescriptor, destAddr FabricAddr, target RemoteMemoryDescriptor, trigger *Counter, threshold uint64, ctx *Context) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpWrite)
	op := tw.guard(func() error { return e.Write(buf, desc, destAddr, target, ctx) })
	if err := e.ep.QueueTriggered(op, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueWrite", err)
	}
	return tw, nil
}

// QueueAtomic queues an atomic operation to fire once trigger reaches
// threshold.
func (e *Endpoint) QueueAtomic(buf []byte, desc LocalDescriptor, destAddr FabricAddr, target RemoteMemoryDescriptor, dt Datatype, op AtomicOp, trigger *Counter, threshold uint64, ctx *Context) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpAtomic)
	fn := tw.guard(func() error { return e.Atomic(buf, desc, destAddr, target, dt, op, ctx) })
	if err := e.ep.QueueTriggered(fn, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueAtomic", err)
	}
	return tw, nil
}

// QueueCounterSet queues a counter-set operation (FI_OP_CNTR_SET): once
// trigger reaches threshold, target is set to value.
func (e *Endpoint) QueueCounterSet(target *Counter, value uint64, trigger *Counter, threshold uint64) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpCntrSet)
	fn := tw.guard(func() error { return target.Set(value) })
	if err := e.ep.QueueTriggered(fn, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueCounterSet", err)
	}
	return tw, nil
}

// QueueCounterAdd queues a counter-increment operation (FI_OP_CNTR_ADD).
func (e *Endpoint) QueueCounterAdd(target *Counter, value uint64, trigger *Counter, threshold uint64) (*TriggeredWork, error) {
	tw := newTriggeredWork(DeferredOpCntrAdd)
	fn := tw.guard(func() error { return target.Add(value) })
	if err := e.ep.QueueTriggered(fn, trigger.counter, threshold); err != nil {
		return nil, WrapError("Endpoint.QueueCounterAdd", err)
	}
	return tw, nil
}

// FlushWork forces any deferred work still gated on counter past its
// threshold immediately (fi_control(FI_FLUSH_WORK)), for orderly shutdown
// when a caller can no longer wait for the natural trigger condition. The
// provider interface this binding targets has no queued-work introspection,
// so this is approximated by driving counter far past any realistic
// threshold rather than flushing a specific work list.
func (d *Domain) FlushWork(counter *Counter) error {
	return counter.Set(^uint64(0))
}
