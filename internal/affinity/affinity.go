// Package affinity pins the calling OS thread to a logical CPU.
//
// Platform-specific implementations live in build-tagged files. Callers must
// hold runtime.LockOSThread for the pin to stay attached to their goroutine.
package affinity

import "errors"

// ErrUnsupported is returned on platforms without thread affinity support.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

// Pin binds the calling OS thread to cpuID.
func Pin(cpuID int) error {
	if cpuID < 0 {
		return errors.New("affinity: negative cpu id")
	}
	return pinPlatform(cpuID)
}
