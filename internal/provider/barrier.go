//go:build linux && cgo

package provider

/*
#include <stdint.h>

// x86-64 store fence to ensure all prior stores are globally visible
static inline void sfence_impl(void) {
    __asm__ __volatile__("sfence" ::: "memory");
}

// x86-64 full memory fence to ensure all prior memory operations are complete
static inline void mfence_impl(void) {
    __asm__ __volatile__("mfence" ::: "memory");
}
*/
import "C"

// Sfence issues a store fence (x86 SFENCE instruction). Required before a
// registered buffer is handed to a provider for RDMA: the remote side must
// never observe a partially-written region.
func Sfence() {
	C.sfence_impl()
}

// Mfence issues a full memory fence (x86 MFENCE instruction), used around
// atomic staging-buffer handoff in the RMW fallback path.
func Mfence() {
	C.mfence_impl()
}
