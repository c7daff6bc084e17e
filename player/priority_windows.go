//go:build windows

package player

import (
	"golang.org/x/sys/windows"

	"github.com/EdmondVirelle/cyber-qin/debug"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modwinmm    = windows.NewLazySystemDLL("winmm.dll")

	procGetCurrentThread  = modkernel32.NewProc("GetCurrentThread")
	procSetThreadPriority = modkernel32.NewProc("SetThreadPriority")
	procTimeBeginPeriod   = modwinmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod     = modwinmm.NewProc("timeEndPeriod")
)

const threadPriorityTimeCritical = 15

// BoostPriority raises the calling thread to TIME_CRITICAL and requests
// a 1ms system timer resolution. The returned func undoes the timer
// request; thread priority dies with the thread. Call with the goroutine
// locked to its OS thread.
func BoostPriority() func() {
	handle, _, _ := procGetCurrentThread.Call()
	ret, _, err := procSetThreadPriority.Call(handle, uintptr(threadPriorityTimeCritical))
	if ret == 0 {
		debug.Log("player", "SetThreadPriority failed: %v", err)
	}
	procTimeBeginPeriod.Call(1)
	return func() {
		procTimeEndPeriod.Call(1)
	}
}
