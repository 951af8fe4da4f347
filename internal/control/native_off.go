//go:build !(linux && cgo && ofi_native)
// +build !linux !cgo !ofi_native

package control

import "github.com/ofi-go/ofi/internal/provider"

func nativeProviderOrNil(name string) provider.Provider {
	return nil
}
