//go:build !windows

package main

import (
	"os"
	"syscall"
)

// interruptSignals cancel a running simulation between trials.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
