// Package control sets listener socket options before bind.
package control

import "syscall"

type Options struct {
	ReuseAddr bool
	ReusePort bool
}

// Control is a net.ListenConfig.Control hook, nil when there is nothing to set.
type Control func(network, address string, c syscall.RawConn) error

func GetControl(options Options) Control {
	if !options.ReuseAddr && !options.ReusePort {
		return nil
	}
	return getControl(options)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
