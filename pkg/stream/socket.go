package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/0xmhha/agent-hud/pkg/logger"
)

// SocketSource dials a stream listener that writes event lines.
//
// A new connection is a new stream: nothing is resumed across
// reconnects.
type SocketSource struct {
	network string
	address string
	dialer  net.Dialer
}

// NewSocketSource creates a source for network ("unix" or "tcp") and
// address.
func NewSocketSource(network, address string) *SocketSource {
	return &SocketSource{
		network: network,
		address: address,
		dialer:  net.Dialer{Timeout: 5 * time.Second},
	}
}

// ParseSocket splits an address of the form "tcp://host:port",
// "unix:///path" or a bare path into network and address. Bare paths are
// unix sockets.
func ParseSocket(addr string) (network, address string) {
	switch {
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", strings.TrimPrefix(addr, "tcp://")
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://")
	default:
		return "unix", logger.ExpandHome(addr)
	}
}

// Name implements Source.Name.
func (s *SocketSource) Name() string {
	return s.network + "://" + s.address
}

// Open implements Source.Open.
func (s *SocketSource) Open(ctx context.Context) (io.ReadCloser, error) {
	conn, err := s.dialer.DialContext(ctx, s.network, s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", s.Name(), err)
	}
	return conn, nil
}
