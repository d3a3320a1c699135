//go:build windows

package asyncrt

import "golang.org/x/sys/windows"

// EFD_CLOEXEC and EFD_NONBLOCK are Unix eventfd flags, unused on
// Windows (createWakeFd ignores flags) but defined so callers that
// pass them compile on every platform.
const (
	EFD_CLOEXEC  = 0
	EFD_NONBLOCK = 0
)

// createWakeFd is a no-op on Windows: IOCP wake-up uses
// PostQueuedCompletionStatus against the IOCP handle directly rather
// than a writable fd, so there is nothing to create here. Returns
// -1, -1 to signal "no wake fd" to the reactor.
func createWakeFd(initval uint, flags int) (int, int, error) {
	return -1, -1, nil
}

// closeWakeFd is a no-op on Windows.
func closeWakeFd(wakeFd, wakeWriteFd int) error {
	return nil
}

// isWakeFdSupported returns false: Windows wakes via
// PostQueuedCompletionStatus, not an eventfd/pipe.
func isWakeFdSupported() bool {
	return false
}

// drainWakeUpPipe is a no-op on Windows: PostQueuedCompletionStatus
// posts a discrete completion rather than leaving a fd readable.
func drainWakeUpPipe(wakeFd int) error {
	return nil
}

// submitGenericWakeup posts a NULL completion to the IOCP handle,
// causing a blocked GetQueuedCompletionStatus to return immediately
// with overlapped == nil — the reactor recognizes that as a wake, not
// a real I/O event.
func submitGenericWakeup(iocpHandle uintptr) error {
	return windows.PostQueuedCompletionStatus(
		windows.Handle(iocpHandle),
		0,
		0,
		nil,
	)
}
