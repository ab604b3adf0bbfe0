package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/BTreeMap/PayFlow/internal/flow"
)

// DefaultProbeTimeout bounds a single connectivity probe.
const DefaultProbeTimeout = 3 * time.Second

// Probe reports reachability by opening a TCP connection to the gateway host.
type Probe struct {
	address string
	timeout time.Duration
	dialer  net.Dialer
}

var _ flow.ConnectivityChecker = (*Probe)(nil)

// NewProbe creates a Probe for the host of baseURL. A missing port defaults
// to the scheme's well-known port.
func NewProbe(baseURL string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Probe{address: probeAddress(baseURL), timeout: timeout}
}

func probeAddress(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	if u.Port() != "" {
		return u.Host
	}
	port := "443"
	if u.Scheme == "http" {
		port = "80"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// Address returns the host:port the probe dials.
func (p *Probe) Address() string { return p.address }

// IsConnected dials the gateway and closes the connection immediately.
func (p *Probe) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		slog.Debug("Probe.IsConnected: dial failed", "address", p.address, "error", err)
		return false
	}
	conn.Close()
	return true
}
