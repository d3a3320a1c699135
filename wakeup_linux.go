//go:build linux

package asyncrt

import (
	"golang.org/x/sys/unix"
)

const (
	EFD_CLOEXEC  = unix.EFD_CLOEXEC
	EFD_NONBLOCK = unix.EFD_NONBLOCK
)

// createWakeFd creates an eventfd for cross-thread wake-up notifications
// on Linux. Returns the single eventfd as both read and write ends,
// since eventfd supports both operations on the one descriptor.
func createWakeFd(initval uint, flags int) (int, int, error) {
	fd, err := unix.Eventfd(initval, flags)
	return fd, fd, err
}

// closeWakeFd closes the wake eventfd.
func closeWakeFd(wakeFd, _ int) error {
	if wakeFd >= 0 {
		return unix.Close(wakeFd)
	}
	return nil
}

// isWakeFdSupported returns true on Linux (eventfd mechanism).
func isWakeFdSupported() bool {
	return true
}

// drainWakeUpPipe drains every pending wake-up from wakeFd, so a
// single write (one or many times) only causes the reactor's next
// Turn to return once rather than leaving the fd permanently readable.
func drainWakeUpPipe(wakeFd int) error {
	if wakeFd < 0 {
		return nil
	}
	var buf [8]byte
	for {
		if _, err := unix.Read(wakeFd, buf[:]); err != nil {
			break
		}
	}
	return nil
}

// submitGenericWakeup is a stub kept for symmetry with Windows, where
// waking up uses PostQueuedCompletionStatus instead of a writable fd.
// On Linux the reactor writes to the eventfd directly.
func submitGenericWakeup(_ uintptr) error {
	return nil
}
