package client

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/ValentinKolb/sKV/lib/digest"
	"github.com/ValentinKolb/sKV/lib/sanitize"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/google/uuid"
)

// Client is a lock-step client of the sKV server. Every request waits for its
// reply before the next one is sent. A Client is safe for concurrent use but
// serializes all requests.
type Client struct {
	config    common.ClientConfig
	connector transport.IClientConnector

	mu   sync.Mutex
	conn net.Conn
}

// NewClient creates a new client. If config has no client ID a random one is generated.
//
// Usage:
//
//	c := client.NewClient(config, tls.NewClientConnector())
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Disconnect()
func NewClient(config common.ClientConfig, connector transport.IClientConnector) *Client {
	if config.ClientID == "" {
		config.ClientID = NewClientID()
	}
	return &Client{
		config:    config,
		connector: connector,
	}
}

// NewClientID returns a random identifier accepted by the server
func NewClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ID returns the client identifier sent with CONNECT.
func (c *Client) ID() string {
	return c.config.ClientID
}

// Connected reports whether the client has an active session.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Connect opens the TLS connection and claims the client ID.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("client %s is already connected", c.config.ClientID)
	}
	if !sanitize.IsValid(c.config.ClientID) {
		return fmt.Errorf("%w: %q", ErrConnectRejected, c.config.ClientID)
	}

	conn, err := c.connector.Connect(ctx, c.config)
	if err != nil {
		return err
	}
	c.conn = conn

	if err := c.send(common.NewCommand(common.VerbConnect, c.config.ClientID).String()); err != nil {
		return err
	}
	resp, err := c.recv()
	if err != nil {
		return err
	}

	switch resp {
	case common.RespConnectOK:
		Logger.Debugf("client %s connected to %s", c.config.ClientID, c.config.Endpoint)
		return nil
	case common.RespConnectTaken:
		return c.fail(ErrIDTaken)
	case common.RespConnectError:
		return c.fail(ErrConnectRejected)
	default:
		return c.violation(common.VerbConnect, resp)
	}
}

// Disconnect ends the session and closes the connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(string(common.VerbDisconnect)); err != nil {
		return err
	}
	resp, err := c.recv()
	if err != nil {
		return err
	}
	if err := c.checkReply(resp); err != nil {
		return err
	}
	if resp != common.RespDisconnectOK {
		return c.violation(common.VerbDisconnect, resp)
	}
	_ = c.closeConn()
	return nil
}

// Close closes the connection without ending the session gracefully.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeConn()
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// Put stores value under key together with its SHA-256 digest.
// Surrounding whitespace of value is not preserved by the wire format and is
// removed before the digest is computed.
func (c *Client) Put(key, value string) error {
	if !sanitize.IsValid(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	value = strings.TrimFunc(value, sanitize.IsSpace)
	if value == "" || !transport.IsASCII(value) {
		return fmt.Errorf("%w: value must be non-empty ASCII", ErrInvalidValue)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(common.NewCommand(common.VerbPut, key).String(), value, digest.Compute(value)); err != nil {
		return err
	}
	resp, err := c.recv()
	if err != nil {
		return err
	}
	if err := c.checkReply(resp); err != nil {
		return err
	}
	if resp != common.RespPutOK {
		return c.violation(common.VerbPut, resp)
	}
	return nil
}

// Get returns the value stored under key after verifying its digest.
// Missing keys yield ErrKeyNotFound, a digest mismatch ErrDataModified.
func (c *Client) Get(key string) (string, error) {
	if !sanitize.IsValid(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(common.NewCommand(common.VerbGet, key).String()); err != nil {
		return "", err
	}
	value, err := c.recv()
	if err != nil {
		return "", err
	}
	if value == common.RespGetNotFound {
		return "", ErrKeyNotFound
	}
	if err := c.checkReply(value); err != nil {
		return "", err
	}

	sum, err := c.recv()
	if err != nil {
		return "", err
	}
	if !digest.Verify(value, sum) {
		Logger.Warningf("digest mismatch for key %s", key)
		return "", ErrDataModified
	}
	return value, nil
}

// Delete removes key. Missing keys yield ErrKeyNotFound.
func (c *Client) Delete(key string) error {
	if !sanitize.IsValid(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(common.NewCommand(common.VerbDelete, key).String()); err != nil {
		return err
	}
	resp, err := c.recv()
	if err != nil {
		return err
	}
	if err := c.checkReply(resp); err != nil {
		return err
	}

	switch resp {
	case common.RespDeleteOK:
		return nil
	case common.RespDeleteNotFound:
		return ErrKeyNotFound
	default:
		return c.violation(common.VerbDelete, resp)
	}
}
