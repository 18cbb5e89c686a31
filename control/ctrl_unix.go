//go:build unix

package control

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func getControl(options Options) Control {
	return func(network, address string, c syscall.RawConn) (err error) {
		e := c.Control(func(fd uintptr) {
			if options.ReuseAddr {
				if err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(options.ReuseAddr)); err != nil {
					return
				}
			}
			if options.ReusePort {
				err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(options.ReusePort))
			}
		})
		if e != nil {
			return e
		}
		return
	}
}
