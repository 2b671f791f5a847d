//go:build !windows

package server

import "os"

func interrupt(p *os.Process) error {
	return p.Signal(os.Interrupt)
}
