package tls

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// startServer listens on a random loopback port and handshakes every accepted connection.
// Handshake results are delivered on the returned channel.
func startServer(t *testing.T, connector transport.IServerConnector) (string, <-chan error) {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"

	ln, err := connector.Listen(config)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	results := make(chan error, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = connector.Handshake(ctx, conn)
			cancel()
			results <- err
			if err == nil {
				_, _ = conn.Write([]byte("x"))
			}
			_ = conn.Close()
		}
	}()

	return ln.Addr().String(), results
}

// newPair writes a fresh certificate to disk and returns a server connector
// loading it on Listen plus the pool trusting it.
func newPair(t *testing.T, hosts []string) (transport.IServerConnector, *x509.CertPool, []byte) {
	t.Helper()
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := WriteSelfSigned(certFile, keyFile, hosts, time.Hour); err != nil {
		t.Fatalf("WriteSelfSigned failed: %v", err)
	}
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatal(err)
	}
	pool, err := LoadCertPool(certFile)
	if err != nil {
		t.Fatalf("LoadCertPool failed: %v", err)
	}
	return &fileConnector{certFile: certFile, keyFile: keyFile}, pool, certPEM
}

// fileConnector injects certificate files into the server configuration
type fileConnector struct {
	serverConnector
	certFile, keyFile string
}

func (c *fileConnector) Listen(config common.ServerConfig) (transport.Listener, error) {
	config.CertFile = c.certFile
	config.KeyFile = c.keyFile
	return c.serverConnector.Listen(config)
}

func TestGenerateSelfSigned(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSigned([]string{"localhost", "127.0.0.1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatalf("expected CERTIFICATE block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("ParseCertificate failed: %v", err)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("unexpected DNS names %v", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 1 || !cert.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("unexpected IP addresses %v", cert.IPAddresses)
	}
	if !cert.IsCA {
		t.Errorf("expected self-signed certificate to be a CA")
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil || keyBlock.Type != "EC PRIVATE KEY" {
		t.Fatalf("expected EC PRIVATE KEY block")
	}
}

func TestWriteSelfSigned(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if err := WriteSelfSigned(certFile, keyFile, nil, 0); err != nil {
		t.Fatalf("WriteSelfSigned failed: %v", err)
	}

	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected key mode 0600, got %v", info.Mode().Perm())
	}
	if _, err := LoadCertPool(certFile); err != nil {
		t.Errorf("LoadCertPool failed: %v", err)
	}
}

func TestLoadCertPoolErrors(t *testing.T) {
	if _, err := LoadCertPool(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Errorf("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(empty, []byte("not a cert"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCertPool(empty); err == nil {
		t.Errorf("expected error for file without certificates")
	}
}

func TestListenBadKeypair(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.CertFile = filepath.Join(t.TempDir(), "missing.pem")
	config.KeyFile = filepath.Join(t.TempDir(), "missing.key")

	if _, err := NewServerConnector().Listen(config); err == nil {
		t.Errorf("expected error for missing certificate material")
	}
}

func TestListenerDeadline(t *testing.T) {
	cert, err := SelfSignedCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"

	ln, err := NewServerConnectorWithCertificate(cert).Listen(config)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	if err := ln.SetDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("SetDeadline failed: %v", err)
	}
	_, err = ln.Accept()
	if err == nil {
		t.Fatalf("expected accept to time out")
	}
	if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestConnect(t *testing.T) {
	server, roots, certPEM := newPair(t, []string{"localhost", "127.0.0.1"})
	addr, results := startServer(t, server)

	t.Run("TrustedWithHostname", func(t *testing.T) {
		conn, err := NewClientConnectorWithRoots(roots).Connect(context.Background(), common.ClientConfig{Endpoint: addr, TimeoutSecond: 2})
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		defer conn.Close()
		if err := <-results; err != nil {
			t.Errorf("server handshake failed: %v", err)
		}
		buf := make([]byte, 1)
		if _, err := conn.Read(buf); err != nil || buf[0] != 'x' {
			t.Errorf("expected to read from server, got %q %v", buf, err)
		}
	})

	t.Run("CAFile", func(t *testing.T) {
		caFile := filepath.Join(t.TempDir(), "ca.pem")
		if err := os.WriteFile(caFile, certPEM, 0o644); err != nil {
			t.Fatal(err)
		}
		conn, err := NewClientConnector().Connect(context.Background(), common.ClientConfig{Endpoint: addr, CAFile: caFile, TimeoutSecond: 2})
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		conn.Close()
		<-results
	})

	t.Run("WrongHostname", func(t *testing.T) {
		_, err := NewClientConnectorWithRoots(roots).Connect(context.Background(), common.ClientConfig{Endpoint: addr, ServerName: "example.org", TimeoutSecond: 2})
		if err == nil {
			t.Fatalf("expected hostname verification to fail")
		}
		<-results
	})

	t.Run("SkipHostname", func(t *testing.T) {
		conn, err := NewClientConnectorWithRoots(roots).Connect(context.Background(), common.ClientConfig{
			Endpoint:             addr,
			ServerName:           "example.org",
			InsecureSkipHostname: true,
			TimeoutSecond:        2,
		})
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		conn.Close()
		<-results
	})

	t.Run("UntrustedChain", func(t *testing.T) {
		_, otherRoots, _ := newPair(t, []string{"localhost"})
		_, err := NewClientConnectorWithRoots(otherRoots).Connect(context.Background(), common.ClientConfig{
			Endpoint:             addr,
			InsecureSkipHostname: true,
			TimeoutSecond:        2,
		})
		if err == nil {
			t.Fatalf("expected chain verification to fail")
		}
		<-results
	})
}
