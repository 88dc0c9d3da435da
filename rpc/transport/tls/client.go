package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// clientConnector implements the IClientConnector interface for TLS over TCP
type clientConnector struct {
	roots *x509.CertPool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tls"
}

func (c *clientConnector) Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error) {
	tlsConfig, err := c.clientTLSConfig(config)
	if err != nil {
		return nil, err
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: config.Timeout()},
		Config:    tlsConfig,
	}
	conn, err := dialer.DialContext(ctx, "tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}
	return conn, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// clientTLSConfig builds the TLS configuration for config.
// With InsecureSkipHostname the certificate chain is still verified against
// the trusted roots, only the hostname check is skipped.
func (c *clientConnector) clientTLSConfig(config common.ClientConfig) (*tls.Config, error) {
	roots := c.roots
	if roots == nil && config.CAFile != "" {
		pool, err := LoadCertPool(config.CAFile)
		if err != nil {
			return nil, err
		}
		roots = pool
	}

	serverName := config.ServerName
	if serverName == "" {
		host, _, err := net.SplitHostPort(config.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %s: %w", config.Endpoint, err)
		}
		serverName = host
	}

	tlsConfig := &tls.Config{
		RootCAs:    roots,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}

	if config.InsecureSkipHostname {
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyConnection = func(cs tls.ConnectionState) error {
			return verifyChain(cs, roots)
		}
	}
	return tlsConfig, nil
}

// verifyChain verifies the peer certificate chain without checking the hostname
func verifyChain(cs tls.ConnectionState, roots *x509.CertPool) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("server presented no certificate")
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

// --------------------------------------------------------------------------
// Client Connector Factory Methods
// --------------------------------------------------------------------------

// NewClientConnector creates a TLS client connector that trusts the CA file
// named in the client configuration (or the system roots).
func NewClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

// NewClientConnectorWithRoots creates a TLS client connector trusting roots
// regardless of the client configuration.
func NewClientConnectorWithRoots(roots *x509.CertPool) transport.IClientConnector {
	return &clientConnector{roots: roots}
}
