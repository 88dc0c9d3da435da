package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// serverConnector implements the IServerConnector interface for TLS over TCP
type serverConnector struct {
	cert *tls.Certificate
}

// deadlineListener exposes the deadline of the TCP listener beneath the TLS listener
type deadlineListener struct {
	net.Listener
	tcp *net.TCPListener
}

func (l *deadlineListener) SetDeadline(t time.Time) error {
	return l.tcp.SetDeadline(t)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tls"
}

func (c *serverConnector) Listen(config common.ServerConfig) (transport.Listener, error) {
	cert, err := c.certificate(config)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	addr, err := net.ResolveTCPAddr("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", config.Endpoint, err)
	}
	tcpListener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}

	return &deadlineListener{
		Listener: tls.NewListener(tcpListener, tlsConfig),
		tcp:      tcpListener,
	}, nil
}

func (c *serverConnector) Handshake(ctx context.Context, conn net.Conn) error {
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return fmt.Errorf("not a TLS connection: %T", conn)
	}
	return tlsConn.HandshakeContext(ctx)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// certificate returns the configured certificate. Without any configured
// material a self-signed certificate is generated.
func (c *serverConnector) certificate(config common.ServerConfig) (tls.Certificate, error) {
	if c.cert != nil {
		return *c.cert, nil
	}

	if config.CertFile != "" || config.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("load TLS keypair: %w", err)
		}
		Logger.Infof("loaded TLS certificate from %s", config.CertFile)
		return cert, nil
	}

	cert, err := SelfSignedCertificate(nil)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate self-signed cert: %w", err)
	}
	Logger.Warningf("no certificate configured, using a generated self-signed certificate")
	return cert, nil
}

// --------------------------------------------------------------------------
// Server Connector Factory Methods
// --------------------------------------------------------------------------

// NewServerConnector creates a TLS server connector that loads its
// certificate from the files named in the server configuration.
func NewServerConnector() transport.IServerConnector {
	return &serverConnector{}
}

// NewServerConnectorWithCertificate creates a TLS server connector using cert
// regardless of the server configuration.
func NewServerConnectorWithCertificate(cert tls.Certificate) transport.IServerConnector {
	return &serverConnector{cert: &cert}
}
