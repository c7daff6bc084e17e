//go:build !windows

package keysim

import "github.com/EdmondVirelle/cyber-qin/debug"

// NopInjector logs batches instead of delivering them. It stands in on
// platforms without a scan-code injection primitive and for dry runs.
type NopInjector struct{}

// NewPlatformInjector returns the injector for the running platform.
func NewPlatformInjector() Injector {
	return &NopInjector{}
}

func (j *NopInjector) Emit(batch []KeyEvent) error {
	debug.LogEvery(50, "keysim", "nop inject: %d events", len(batch))
	return nil
}
