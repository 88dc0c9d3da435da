package transport

import (
	"context"
	"net"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server side
// --------------------------------------------------------------------------

// Listener is a net.Listener whose Accept can be bounded by a deadline.
// The server uses the deadline to wake up periodically and check for shutdown.
type Listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// IServerConnector defines the transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener on the configured endpoint
	Listen(config common.ServerConfig) (Listener, error)

	// Handshake completes the transport handshake of an accepted connection
	// (a no-op for transports without one)
	Handshake(ctx context.Context, conn net.Conn) error

	// GetName returns the name of the transport type (e.g. "tls")
	GetName() string
}

// --------------------------------------------------------------------------
// Client side
// --------------------------------------------------------------------------

// IClientConnector defines the transport-specific client operations
type IClientConnector interface {
	// Connect establishes a connection to the configured endpoint, including
	// any transport handshake
	Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tls")
	GetName() string
}
