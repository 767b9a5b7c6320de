//go:build unix

package osexec

import (
	"os"
	"syscall"
)

// terminateSignal is the cooperative shutdown signal Stop sends before
// escalating to Kill.
var terminateSignal os.Signal = syscall.SIGTERM
