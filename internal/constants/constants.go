package constants

import "time"

// Default configuration constants
const (
	// DefaultCompletionQueueDepth is the default completion queue size
	// (number of CQE slots) when a caller does not override it.
	DefaultCompletionQueueDepth = 1024

	// DefaultEventQueueDepth is the default event queue size.
	DefaultEventQueueDepth = 256

	// DefaultInjectSize is the default maximum payload size eligible for
	// FI_INJECT (send-and-forget, no completion, no local buffer ownership
	// past the call) when a provider does not report its own limit.
	DefaultInjectSize = 64

	// DefaultMRCachePageSize is the page-alignment granularity the memory
	// region cache rounds registrations to.
	DefaultMRCachePageSize = 4096

	// DefaultMRCacheMaxEntries bounds the memory region cache's resident
	// set before it starts evicting least-recently-used regions.
	DefaultMRCacheMaxEntries = 4096

	// DefaultAddressVectorCapacity is the default number of fabric
	// addresses an address vector table is sized for.
	DefaultAddressVectorCapacity = 1024

	// DefaultMaxAtomicCount is the default maximum element count a single
	// atomic or fetch/compare-atomic call accepts.
	DefaultMaxAtomicCount = 1

	// AutoSelectProvider indicates the caller has no provider preference
	// and fi_getinfo should return every provider's best match.
	AutoSelectProvider = ""
)

// Timing constants for connection and provider lifecycle.
//
// These account for provider- and kernel-level asynchrony during endpoint
// setup. A typical connection-oriented (FI_EP_MSG) sequence is:
//  1. fi_connect/fi_listen posts a CM request to the provider
//  2. the event queue delivers FI_CONNREQ, then (after accept) FI_CONNECTED
//  3. only after FI_CONNECTED may the endpoint be used for data transfer
//
// Without proper backoff, EQ reads spin before the provider has anything to
// deliver, burning CPU without making progress.
const (
	// EventQueuePollInterval is how often a blocking Wait falls back to
	// polling when a provider's wait object does not support epoll/poll
	// directly (e.g. FI_WAIT_UNSPEC without a backing fd).
	EventQueuePollInterval = 10 * time.Millisecond

	// ConnectTimeout is the deadline Endpoint.AwaitConnected applies when
	// called with a non-positive timeout: if no FI_CONNECTED event arrives
	// within it, AwaitConnected returns a timeout error.
	ConnectTimeout = 5 * time.Second

	// ProgressYield is how long Endpoint.AwaitConnected sleeps between
	// event-queue polls that find nothing pending, to avoid a hot spin loop.
	ProgressYield = 1 * time.Millisecond
)

// Memory allocation constants
const (
	// StagingBufferSize is the size of each pooled buffer used to stage
	// provider-side atomic fetch/compare results and bounce-buffered RMA.
	StagingBufferSize = 4096
)
