//go:build darwin

package asyncrt

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	EFD_CLOEXEC  = unix.O_CLOEXEC
	EFD_NONBLOCK = unix.O_NONBLOCK
)

// createWakeFd creates a self-pipe for cross-thread wake-up
// notifications on Darwin, since kqueue has no eventfd equivalent.
// Returns the read end and the write end of the pipe. initval and
// flags are accepted only for API parity with the Linux eventfd path.
func createWakeFd(initval uint, flags int) (int, int, error) {
	_ = initval
	_ = flags

	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

// drainWakeUpPipe drains every pending byte from the self-pipe's read
// end, so repeated writes only cause one wakeup per drain.
func drainWakeUpPipe(wakeFd int) error {
	if wakeFd < 0 {
		return nil
	}
	var buf [64]byte
	for {
		if _, err := syscall.Read(wakeFd, buf[:]); err != nil {
			break
		}
	}
	return nil
}

// isWakeFdSupported returns true.
func isWakeFdSupported() bool {
	return true
}

// closeWakeFd closes both ends of the self-pipe.
func closeWakeFd(wakeFd, wakeWriteFd int) error {
	if wakeFd >= 0 {
		_ = syscall.Close(wakeFd)
	}
	if wakeWriteFd >= 0 && wakeWriteFd != wakeFd {
		_ = syscall.Close(wakeWriteFd)
	}
	return nil
}

// submitGenericWakeup is a stub kept for symmetry with Windows; on
// Darwin the reactor writes a byte to the self-pipe directly.
func submitGenericWakeup(_ uintptr) error {
	return nil
}
