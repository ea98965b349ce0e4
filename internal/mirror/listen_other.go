//go:build !unix && !windows

package mirror

import (
	"strings"
	"syscall"
)

var reuseAddrControl func(network, address string, c syscall.RawConn) error

func isAddrInUse(err error) bool {
	return err != nil && strings.Contains(err.Error(), "address already in use")
}
