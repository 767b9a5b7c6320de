//go:build windows

package osexec

import "os"

// terminateSignal falls back to os.Kill on Windows, which has no SIGTERM
// equivalent; Stop's timeout-then-Kill path degenerates to an immediate
// kill on this platform.
var terminateSignal os.Signal = os.Kill
