package ofi

import "github.com/ofi-go/ofi/internal/constants"

// Re-exported defaults for the public API.
const (
	DefaultCompletionQueueDepth  = constants.DefaultCompletionQueueDepth
	DefaultEventQueueDepth       = constants.DefaultEventQueueDepth
	DefaultInjectSize            = constants.DefaultInjectSize
	DefaultMRCachePageSize       = constants.DefaultMRCachePageSize
	DefaultMRCacheMaxEntries     = constants.DefaultMRCacheMaxEntries
	DefaultAddressVectorCapacity = constants.DefaultAddressVectorCapacity
	DefaultMaxAtomicCount        = constants.DefaultMaxAtomicCount
	AutoSelectProvider           = constants.AutoSelectProvider
)
