//go:build windows

package server

import "os"

// Windows cannot send os.Interrupt to another process. The console has
// already delivered Ctrl+C to the child, so leave it alone and let
// WaitDelay kill it if it lingers.
func interrupt(_ *os.Process) error {
	return nil
}
