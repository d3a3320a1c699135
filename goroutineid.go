package asyncrt

import "runtime"

// getGoroutineID returns the current goroutine's id by parsing the
// "goroutine NNN [...]" header runtime.Stack prints for the calling
// goroutine. It is the same trick the teacher's event loop used to
// recognize its own dedicated loop goroutine; here it is generalized
// to tell N worker goroutines apart via workerRegistry, and to detect
// reentrant BlockOn calls on the same goroutine.
//
// This is deliberately not exposed: it is a stack walk. Besides
// registering/unregistering a worker and entering/leaving BlockOn, it
// runs on every enqueue, through currentWorker.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
