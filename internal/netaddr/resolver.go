package netaddr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNoAddress is returned when no non-loopback IPv4 address is available.
var ErrNoAddress = errors.New("no non-loopback IPv4 address found")

// DefaultWiFiPatterns are matched case-insensitively against interface names.
var DefaultWiFiPatterns = []string{"wlan", "wifi", "wi-fi", "wlp", "wireless", "airport", "en0"}

// Interface is a network interface together with its addresses.
type Interface struct {
	Name  string
	Up    bool
	Addrs []net.Addr
}

// InterfaceSource enumerates interfaces. Tests substitute a fixed list.
type InterfaceSource func() ([]Interface, error)

// Candidate is one usable address found during enumeration.
type Candidate struct {
	Interface string `json:"interface"`
	IP        string `json:"ip"`
	WiFi      bool   `json:"wifi"`
}

// Resolver selects a LAN-facing IPv4 address.
type Resolver struct {
	source   InterfaceSource
	patterns []string
	logger   *zap.Logger

	mu     sync.Mutex
	cached string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPatterns overrides the WiFi interface name patterns.
func WithPatterns(patterns []string) Option {
	return func(r *Resolver) {
		if len(patterns) > 0 {
			r.patterns = patterns
		}
	}
}

// WithSource overrides interface enumeration.
func WithSource(source InterfaceSource) Option {
	return func(r *Resolver) {
		if source != nil {
			r.source = source
		}
	}
}

// NewResolver creates a Resolver backed by net.Interfaces.
func NewResolver(logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		source:   SystemInterfaces,
		patterns: DefaultWiFiPatterns,
		logger:   logger.With(zap.String("component", "address_resolver")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the preferred LAN address. The first successful result is
// cached for the lifetime of the Resolver.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	candidates, err := r.candidates()
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		r.logger.Warn("no LAN address available")
		return "", ErrNoAddress
	}

	chosen := candidates[0]
	for _, c := range candidates {
		if c.WiFi {
			chosen = c
			break
		}
	}

	r.cached = chosen.IP
	r.logger.Info("resolved LAN address",
		zap.String("ip", chosen.IP),
		zap.String("interface", chosen.Interface),
		zap.Bool("wifi", chosen.WiFi),
	)
	return r.cached, nil
}

// Candidates lists every non-loopback IPv4 address in enumeration order.
func (r *Resolver) Candidates(ctx context.Context) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.candidates()
}

func (r *Resolver) candidates() ([]Candidate, error) {
	ifaces, err := r.source()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	var out []Candidate
	for _, iface := range ifaces {
		if !iface.Up {
			continue
		}
		wifi := r.isWiFi(iface.Name)
		for _, a := range iface.Addrs {
			ip := ipv4Of(a)
			if ip == nil || ip.IsLoopback() {
				continue
			}
			out = append(out, Candidate{Interface: iface.Name, IP: ip.String(), WiFi: wifi})
		}
	}
	return out, nil
}

func (r *Resolver) isWiFi(name string) bool {
	name = strings.ToLower(name)
	for _, p := range r.patterns {
		if p != "" && strings.Contains(name, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func ipv4Of(a net.Addr) net.IP {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	if ip == nil {
		return nil
	}
	return ip.To4()
}

// SystemInterfaces enumerates the host's interfaces via net.Interfaces.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Interface{
			Name:  iface.Name,
			Up:    iface.Flags&net.FlagUp != 0,
			Addrs: addrs,
		})
	}
	return out, nil
}
