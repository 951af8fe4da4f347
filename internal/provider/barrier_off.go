//go:build !(linux && cgo)

package provider

// Sfence is a no-op on builds without cgo: the pure-Go stub provider never
// hands a buffer to hardware that could observe a partial write, so there
// is nothing to fence.
func Sfence() {}

// Mfence is a no-op on builds without cgo, for the same reason as Sfence.
func Mfence() {}
