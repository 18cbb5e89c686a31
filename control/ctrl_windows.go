package control

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// windows has no SO_REUSEPORT, ReusePort is ignored
func getControl(options Options) Control {
	return func(network, address string, c syscall.RawConn) (err error) {
		e := c.Control(func(fd uintptr) {
			if options.ReuseAddr {
				err = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, boolToInt(options.ReuseAddr))
			}
		})
		if e != nil {
			return e
		}
		return
	}
}
