package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/digest"
	"github.com/ValentinKolb/sKV/lib/identity"
	"github.com/ValentinKolb/sKV/lib/ratelimit"
	"github.com/ValentinKolb/sKV/lib/sanitize"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport"
	skvtls "github.com/ValentinKolb/sKV/rpc/transport/tls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

type testEnv struct {
	store    store.IStore
	endpoint string
	roots    *x509.CertPool
}

func startServer(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	certPEM, keyPEM, err := skvtls.GenerateSelfSigned(nil, time.Hour)
	require.NoError(t, err)
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(certPEM))

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.AcceptTimeout = 50 * time.Millisecond
	config.RateLimit = rateLimit

	st := lstore.NewLocalStore()
	s := server.NewServer(config, skvtls.NewServerConnectorWithCertificate(cert), st,
		ratelimit.New(config.RateLimit, config.RateWindow), identity.NewRegistry())
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = s.Close()
	})

	return &testEnv{store: st, endpoint: s.Addr().String(), roots: roots}
}

// startDroppingServer accepts a single session, confirms its CONNECT, refuses
// it for too many requests right away and closes without reading further
func startDroppingServer(t *testing.T) *testEnv {
	t.Helper()

	certPEM, keyPEM, err := skvtls.GenerateSelfSigned(nil, time.Hour)
	require.NoError(t, err)
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(certPEM))

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := transport.ReadFrame(conn, 0); err != nil {
			return
		}
		_ = transport.WriteFrame(conn, common.RespConnectOK)
		_ = transport.WriteFrame(conn, common.RespTooManyRequests)
	}()

	return &testEnv{endpoint: ln.Addr().String(), roots: roots}
}

func (e *testEnv) newClient(id string) *Client {
	return NewClient(common.ClientConfig{
		Endpoint:      e.endpoint,
		ClientID:      id,
		TimeoutSecond: 2,
	}, skvtls.NewClientConnectorWithRoots(e.roots))
}

func (e *testEnv) connect(t *testing.T, id string) *Client {
	t.Helper()
	c := e.newClient(id)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestClientLifecycle(t *testing.T) {
	env := startServer(t, 100)
	c := env.connect(t, "Alice")
	assert.True(t, c.Connected())

	require.NoError(t, c.Put("k1", "v1"))
	value, err := c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	entry, ok := env.store.Get("k1")
	require.True(t, ok)
	assert.Equal(t, digest.Compute("v1"), entry.Digest)

	require.NoError(t, c.Put("k1", "v2"))
	value, err = c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	require.NoError(t, c.Delete("k1"))
	assert.ErrorIs(t, c.Delete("k1"), ErrKeyNotFound)
	_, err = c.Get("k1")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, c.Disconnect())
	assert.False(t, c.Connected())

	_, err = c.Get("k1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClientIDTaken(t *testing.T) {
	env := startServer(t, 100)
	first := env.connect(t, "Alice")

	second := env.newClient("Alice")
	err := second.Connect(context.Background())
	assert.ErrorIs(t, err, ErrIDTaken)
	assert.False(t, second.Connected())

	// first session unaffected
	require.NoError(t, first.Put("k", "v"))

	// the id is free again after disconnect
	require.NoError(t, first.Disconnect())
	require.Eventually(t, func() bool {
		return second.Connect(context.Background()) == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, second.Disconnect())
}

func TestClientInvalidID(t *testing.T) {
	env := startServer(t, 100)
	c := env.newClient("Al!ce")
	assert.ErrorIs(t, c.Connect(context.Background()), ErrConnectRejected)
}

func TestClientGeneratedID(t *testing.T) {
	env := startServer(t, 100)
	c := env.newClient("")
	assert.Len(t, c.ID(), 32)
	assert.True(t, sanitize.IsValid(c.ID()))
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect())
}

func TestClientDataModified(t *testing.T) {
	env := startServer(t, 100)
	c := env.connect(t, "Bob")

	require.NoError(t, c.Put("k", "original"))

	// tamper with the stored value, keep the old digest
	entry, ok := env.store.Get("k")
	require.True(t, ok)
	env.store.Put("k", "forged", entry.Digest)

	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrDataModified)

	// the session survives a digest mismatch
	assert.True(t, c.Connected())
	require.NoError(t, c.Put("k", "fresh"))
	value, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", value)
}

func TestClientRateLimited(t *testing.T) {
	env := startServer(t, 10)
	c := env.connect(t, "Eve")

	for i := 0; i < 10; i++ {
		_, err := c.Get("key")
		require.ErrorIs(t, err, ErrKeyNotFound, "request %d", i+1)
	}

	_, err := c.Get("key")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, c.Connected())

	assert.ErrorIs(t, c.Put("key", "v"), ErrNotConnected)
}

func TestClientRateLimitedOnClosedConnection(t *testing.T) {
	env := startDroppingServer(t)
	c := env.connect(t, "Eve")

	// the server is gone before the request is written
	time.Sleep(100 * time.Millisecond)
	err := c.Put("key", strings.Repeat("v", 256*1024))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, c.Connected())
}

func TestClientValidation(t *testing.T) {
	env := startServer(t, 100)
	c := env.connect(t, "Carol")

	assert.ErrorIs(t, c.Put("bad key!", "v"), ErrInvalidKey)
	assert.ErrorIs(t, c.Put("", "v"), ErrInvalidKey)
	assert.ErrorIs(t, c.Put("k", "   "), ErrInvalidValue)
	assert.ErrorIs(t, c.Put("k", "héllo"), ErrInvalidValue)
	_, err := c.Get("a/b")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, c.Delete("a.b"), ErrInvalidKey)

	// nothing was sent, the session is still usable
	require.NoError(t, c.Put("k", "  padded value  "))
	value, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "padded value", value)
}

func TestClientConnectTwice(t *testing.T) {
	env := startServer(t, 100)
	c := env.connect(t, "Dave")
	err := c.Connect(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrIDTaken))
	assert.True(t, c.Connected())
}

func TestClientConnectUnreachable(t *testing.T) {
	c := NewClient(common.ClientConfig{
		Endpoint:      "127.0.0.1:1",
		ClientID:      "Frank",
		TimeoutSecond: 1,
	}, skvtls.NewClientConnector())
	assert.Error(t, c.Connect(context.Background()))
	assert.False(t, c.Connected())
}
