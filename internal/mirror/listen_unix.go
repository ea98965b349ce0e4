//go:build unix

package mirror

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

var reuseAddrControl = func(network, address string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
