//go:build windows

package mirror

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

// Windows 上 SO_REUSEADDR 允许抢占正在监听的端口，因此不设置
var reuseAddrControl func(network, address string, c syscall.RawConn) error

func isAddrInUse(err error) bool {
	return errors.Is(err, windows.WSAEADDRINUSE)
}
