//go:build windows

package main

import "os"

// interruptSignals cancel a running simulation between trials.
// SIGTERM does not exist on Windows.
var interruptSignals = []os.Signal{os.Interrupt}
