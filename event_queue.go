package ofi

import (
	"fmt"
	"time"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/provider"
)

// EventKind names the asynchronous control event an EventQueue entry
// carries: the connection-management variants (ConnRequest/Connected/
// Shutdown) plus the three async-completion variants a domain's control
// path can also surface on its bound EQ (join-complete for multicast
// membership, mr-complete/av-complete for providers whose FI_MR_ENDPOINT /
// address-vector insertion completes asynchronously rather than inline).
type EventKind uint32

const (
	EventConnRequest EventKind = iota
	EventConnected
	EventShutdown
	EventJoinComplete
	EventMRComplete
	EventAVComplete
)

// String names the event kind, the fi_eq event-type counterpart for
// logging/diagnostics.
func (k EventKind) String() string {
	switch k {
	case EventConnRequest:
		return "connreq"
	case EventConnected:
		return "connected"
	case EventShutdown:
		return "shutdown"
	case EventJoinComplete:
		return "join_complete"
	case EventMRComplete:
		return "mr_complete"
	case EventAVComplete:
		return "av_complete"
	default:
		return "unknown"
	}
}

// Event is the decoded form of a fi_eq_cm_entry: a connection-management
// notification (new inbound connection, established connection, peer
// shutdown) for a passive or active endpoint bound to this queue.
type Event struct {
	Kind EventKind
	Data []byte
}

// EventError is the decoded form of a fi_eq_err_entry.
type EventError struct {
	Data          uint64
	Errc          Errc
	ProviderErrno int32
	ErrData       []byte
}

// EventQueue is fi_eq: fabric- and connection-management events, separate
// from the per-domain completion queues that carry data-transfer
// completions.
type EventQueue struct {
	fabric *Fabric
	eq     provider.EventQueue
}

// Poll reads one event without blocking. It returns (nil, nil) when no
// event is pending.
func (q *EventQueue) Poll() (*Event, error) {
	kind, raw, err := q.eq.Read()
	if err != nil {
		if err == provider.ErrQueueFull {
			return nil, nil
		}
		return nil, WrapError("EventQueue.Poll", err)
	}
	ev := decodeEvent(kind, raw)
	return &ev, nil
}

// Wait blocks until an event is available or timeout elapses. A negative
// timeout blocks indefinitely.
func (q *EventQueue) Wait(timeout time.Duration) (*Event, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	kind, raw, err := q.eq.Sread(ms)
	if err != nil {
		return nil, WrapError("EventQueue.Wait", err)
	}
	ev := decodeEvent(kind, raw)
	return &ev, nil
}

// ReadError reads the pending error detail following a negative read.
func (q *EventQueue) ReadError() (*EventError, error) {
	raw, err := q.eq.ReadErr()
	if err != nil {
		return nil, WrapError("EventQueue.ReadError", err)
	}
	return &EventError{
		Data:          raw.Data,
		Errc:          mapErrnoToErrc(asErrno(raw.Err)),
		ProviderErrno: raw.ProvErrno,
		ErrData:       raw.ErrData,
	}, nil
}

// EventToString renders an event for logging (fi_eq_strerror's counterpart
// for non-error events; ReadError already carries its own Errc for the
// error path).
func (q *EventQueue) EventToString(ev *Event) string {
	if ev == nil {
		return "<nil event>"
	}
	if len(ev.Data) == 0 {
		return ev.Kind.String()
	}
	return fmt.Sprintf("%s data=%x", ev.Kind, ev.Data)
}

// Fd returns the wait-object file descriptor backing this EQ.
func (q *EventQueue) Fd() (int, error) {
	fd, err := q.eq.Fd()
	if err != nil {
		return -1, WrapError("EventQueue.Fd", err)
	}
	return fd, nil
}

// Close closes the event queue.
func (q *EventQueue) Close() error {
	if q.eq == nil {
		return nil
	}
	if err := q.eq.Close(); err != nil {
		return WrapError("EventQueue.Close", err)
	}
	return nil
}

func decodeEvent(kind uint32, raw abi.EQCMEntry) Event {
	return Event{Kind: EventKind(kind), Data: raw.Data}
}
