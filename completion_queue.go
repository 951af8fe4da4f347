package ofi

import (
	"time"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/provider"
)

// Completion is the decoded form of a fi_cq_tagged_entry handed back to
// callers: Context recovers the submission-level Context object that was
// passed in at post time (see context.go), everything else mirrors the CQE
// fields a caller would otherwise read straight off fi_cq_tagged_entry.
type Completion struct {
	Context *Context
	Flags   OpFlags
	Len     uint64
	Data    ImmediateWord
	Tag     Tag
}

// CompletionError is the decoded form of a fi_cq_err_entry, returned by
// Poll's companion ReadError path after a CQE reports an error.
type CompletionError struct {
	Context   *Context
	Flags     OpFlags
	Len       uint64
	RequestedLen uint64
	Data      ImmediateWord
	Tag       Tag
	Errc      Errc
	ProviderErrno int32
	ErrData   []byte
}

// Deliver fires the value channel of the Context this completion belongs
// to, if the caller registered one via Context.OnComplete. It is a no-op
// for completions whose Context is nil (no continuation was attached at
// submission time) and for a Context that already fired — a Completion
// can safely be delivered more than once without double-invoking the
// callback.
func (c Completion) Deliver() {
	c.Context.dispatch(c)
}

// Deliver fires the error channel of the Context this error belongs to,
// if one was registered. Same exactly-once guarantee as Completion.Deliver.
func (c CompletionError) Deliver() {
	c.Context.dispatchError(c)
}

// CompletionQueue is fi_cq: the sink endpoints bind their send/recv/RMA/
// atomic completions into. Poll/PollBatch are non-blocking; Wait blocks up
// to timeout (or forever with a negative timeout, matching fi_cq_sread's
// -1 convention).
type CompletionQueue struct {
	domain *Domain
	cq     provider.CompletionQueue
}

// Poll reads at most one completion. It returns (nil, nil) when the queue
// is empty (not an error — matches fi_cq_read returning -FI_EAGAIN).
func (c *CompletionQueue) Poll() (*Completion, error) {
	out, err := c.PollBatch(1)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// PollBatch reads up to max completions without blocking.
func (c *CompletionQueue) PollBatch(max int) ([]Completion, error) {
	raw := make([]abi.CQTaggedEntry, max)
	n, err := c.cq.Read(raw)
	if err != nil {
		if err == provider.ErrQueueFull {
			return nil, nil
		}
		if err == provider.ErrEntryAvailable {
			return nil, c.drainError("CompletionQueue.Poll")
		}
		return nil, WrapError("CompletionQueue.Poll", err)
	}
	out := make([]Completion, n)
	for i := 0; i < n; i++ {
		out[i] = decodeCompletion(raw[i])
	}
	return out, nil
}

// Wait blocks until at least one completion is available or timeout
// elapses. A negative timeout blocks indefinitely.
func (c *CompletionQueue) Wait(timeout time.Duration) (*Completion, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	raw := make([]abi.CQTaggedEntry, 1)
	n, err := c.cq.Sread(raw, ms)
	if err != nil {
		if err == provider.ErrEntryAvailable {
			return nil, c.drainError("CompletionQueue.Wait")
		}
		return nil, WrapError("CompletionQueue.Wait", err)
	}
	if n == 0 {
		return nil, nil
	}
	out := decodeCompletion(raw[0])
	return &out, nil
}

// drainError reads the pending error entry, fires its owning Context's
// error channel (the completion path's continuation-delivery contract
// applies to the error path exactly as it does to the value path), and
// returns it as a plain Go error for callers that just check err != nil.
func (c *CompletionQueue) drainError(op string) error {
	cerr, err := c.ReadError()
	if err != nil {
		return WrapError(op, err)
	}
	cerr.Deliver()
	return &Error{Op: op, Code: cerr.Errc, ProviderErrno: cerr.ProviderErrno, Msg: string(cerr.Errc)}
}

// ReadError reads the pending error detail following a CQE that reported
// an error (fi_cq_readerr). Call it immediately after Poll/Wait surfaces
// an error-flagged completion.
func (c *CompletionQueue) ReadError() (*CompletionError, error) {
	raw, err := c.cq.ReadErr()
	if err != nil {
		return nil, WrapError("CompletionQueue.ReadError", err)
	}
	return &CompletionError{
		Context:       contextFromRaw(raw.OpContext),
		Flags:         OpFlags(raw.Flags),
		Len:           raw.Len,
		RequestedLen:  raw.OLen,
		Data:          ImmediateWord(raw.Data),
		Tag:           Tag(raw.Tag),
		Errc:          mapErrnoToErrc(asErrno(raw.Err)),
		ProviderErrno: raw.ProvErrno,
		ErrData:       raw.ErrData,
	}, nil
}

// Fd returns the wait-object file descriptor backing this CQ, for
// integrating external event loops (epoll/io_uring) instead of calling
// Wait directly.
func (c *CompletionQueue) Fd() (int, error) {
	fd, err := c.cq.Fd()
	if err != nil {
		return -1, WrapError("CompletionQueue.Fd", err)
	}
	return fd, nil
}

// WaitIOUring blocks until a completion is available the same way Wait
// does, but parks on this queue's wait-fd through an io_uring
// IORING_OP_POLL_ADD submission instead of Wait's provider-native sread.
// It exists for callers that already multiplex other I/O through an
// io_uring-based event loop and want fabric completions folded into the
// same ring rather than spending a dedicated thread on fi_cq_sread.
// Requires a host built with the giouring tag; returns an error otherwise.
func (c *CompletionQueue) WaitIOUring(timeout time.Duration) (*Completion, error) {
	fd, err := c.Fd()
	if err != nil {
		return nil, err
	}
	poller, err := provider.NewWaitFdPoller()
	if err != nil {
		return nil, WrapError("CompletionQueue.WaitIOUring", err)
	}
	defer poller.Close()

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	if err := poller.Wait(fd, ms); err != nil {
		return nil, WrapError("CompletionQueue.WaitIOUring", err)
	}
	return c.Poll()
}

// Close closes the completion queue. Any endpoint still bound to it must be
// closed first.
func (c *CompletionQueue) Close() error {
	if c.cq == nil {
		return nil
	}
	if err := c.cq.Close(); err != nil {
		return WrapError("CompletionQueue.Close", err)
	}
	return nil
}

func decodeCompletion(e abi.CQTaggedEntry) Completion {
	return Completion{
		Context: contextFromRaw(e.OpContext),
		Flags:   OpFlags(e.Flags),
		Len:     e.Len,
		Data:    ImmediateWord(e.Data),
		Tag:     Tag(e.Tag),
	}
}
