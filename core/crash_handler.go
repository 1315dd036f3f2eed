package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

var (
	crashMu      sync.RWMutex
	crashHandler func(r any)
)

// SetCrashHandler installs the cleanup hook run before the process exits on a recovered panic
// Tools owning a terminal use it to restore the screen; nil restores the default
func SetCrashHandler(fn func(r any)) {
	crashMu.Lock()
	crashHandler = fn
	crashMu.Unlock()
}

// HandleCrash is the unified panic handler that runs the installed hook and prints the stack trace
func HandleCrash(r any) {
	if r == nil {
		return
	}

	crashMu.RLock()
	fn := crashHandler
	crashMu.RUnlock()

	if fn != nil {
		fn(r)
	}

	os.Stdout.Sync()
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
	os.Stderr.Sync()

	os.Exit(1)
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword so crashes in background loops still clean up.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
