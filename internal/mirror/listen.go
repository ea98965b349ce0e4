package mirror

import (
	"context"
	"net"
	"strconv"
)

// listenFunc binds the mirror listener on port.
type listenFunc func(ctx context.Context, port int) (net.Listener, error)

// listenTCP4 绑定所有 IPv4 接口，允许地址复用
func listenTCP4(ctx context.Context, port int) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	return lc.Listen(ctx, "tcp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
}
