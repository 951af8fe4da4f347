package ofi

import (
	"sync/atomic"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/interfaces"
)

// Context is the per-submission scratch object every posting method
// (Send, Recv, TaggedSend, Read, Write, Atomic, ...) takes. It embeds
// abi.Context as its first field, so the pointer the provider hands back
// unchanged in a completion's context field is the same address as the
// Context itself: recovering the owning Context from a raw completion is
// a plain pointer conversion, not an offset subtraction, because Go
// structs are laid out with their first field at offset 0. This is the
// same back-pointer trick the teacher's queue package uses to recover a
// request slot from an io_uring CQE's user_data, just without needing the
// explicit offset arithmetic C requires.
type Context struct {
	abiCtx     abi.Context
	onComplete func(Completion)
	onError    func(CompletionError)
	user       any
	fired      atomic.Bool
}

// NewContext allocates a fresh, unbound Context. A Context delivers at most
// one completion (see dispatch) and is never re-armed, so each posted
// operation takes its own Context.
func NewContext() *Context {
	return &Context{}
}

// OnComplete registers a callback invoked when this context's operation
// completes successfully. It returns the receiver for chaining at the
// call site (ctx.OnComplete(...).OnError(...)).
func (c *Context) OnComplete(fn func(Completion)) *Context {
	c.onComplete = fn
	return c
}

// OnError registers a callback invoked when this context's operation
// completes with an error (delivered via the CQ's error-entry follow-up
// read).
func (c *Context) OnError(fn func(CompletionError)) *Context {
	c.onError = fn
	return c
}

// SetUserData attaches an arbitrary caller-owned value to this context,
// retrievable from UserData once a completion for it arrives.
func (c *Context) SetUserData(v any) { c.user = v }

// UserData returns the value attached by SetUserData, or nil.
func (c *Context) UserData() any { return c.user }

// dispatch invokes whichever callback matches the completion that arrived
// for this context, if one was registered. Callers that prefer polling
// Completion/CompletionError directly (rather than callbacks) can simply
// never register one; dispatch is then a no-op.
//
// A Context fires at most once: the guard mirrors the teacher queue
// package's per-tag mutex that rejects a double submission, except here
// it rejects a double delivery. Completion.Deliver and
// CompletionError.Deliver rely on this to make the value/error/cancelled channel's "exactly once"
// invariant hold even if a completion is (incorrectly) handed to Deliver
// twice.
func (c *Context) dispatch(comp Completion) {
	if c == nil || !c.fired.CompareAndSwap(false, true) {
		return
	}
	if c.onComplete != nil {
		c.onComplete(comp)
	}
}

func (c *Context) dispatchError(cerr CompletionError) {
	if c == nil || !c.fired.CompareAndSwap(false, true) {
		return
	}
	if c.onError != nil {
		c.onError(cerr)
	}
}

// Fired reports whether this context's completion or error channel has
// already been delivered.
func (c *Context) Fired() bool {
	return c != nil && c.fired.Load()
}

// abiPtr returns the pointer passed to provider.Endpoint submission calls.
func (c *Context) abiPtr() *abi.Context {
	if c == nil {
		return nil
	}
	return &c.abiCtx
}

// contextFromRaw recovers the owning Context from the raw context pointer
// a CQE carries. It relies on abiCtx being Context's first field. The
// parameter is typed as interfaces.NativeContext (an alias for
// unsafe.Pointer) to make explicit that this is the same raw handle the
// dispatch loop on the internal/provider side of the boundary hands back
// unchanged.
func contextFromRaw(p interfaces.NativeContext) *Context {
	if p == nil {
		return nil
	}
	return (*Context)(p)
}
