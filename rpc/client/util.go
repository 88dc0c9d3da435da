package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// pendingReplyTimeout bounds the read for a reply that is still buffered
// after a failed write
const pendingReplyTimeout = 500 * time.Millisecond

var (
	// ErrNotConnected is returned for requests on a client without an active session
	ErrNotConnected = errors.New("not connected")
	// ErrIDTaken is returned by Connect if another session owns the client ID
	ErrIDTaken = errors.New("client id already taken")
	// ErrConnectRejected is returned by Connect if the server refused the CONNECT frame
	ErrConnectRejected = errors.New("connect rejected")
	// ErrRateLimited is returned when the server dropped the connection because of too many requests
	ErrRateLimited = errors.New("too many requests, connection dropped")
	// ErrProtocolViolation is returned when the server answered with an unexpected frame
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrDataModified is returned by Get if the value does not match its digest
	ErrDataModified = errors.New("data has been modified")
	// ErrKeyNotFound is returned by Get and Delete for missing keys
	ErrKeyNotFound = errors.New("key does not exist")
	// ErrInvalidKey is returned for keys the server would reject
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidValue is returned for values that are empty or not ASCII
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidRequest is returned if the server did not understand a request
	ErrInvalidRequest = errors.New("invalid request format")
	// ErrServerError is returned if the server failed to process a request
	ErrServerError = errors.New("server encountered an unexpected error")
)

// --------------------------------------------------------------------------
// Request helpers
// --------------------------------------------------------------------------

// send writes frames in order. The caller must hold c.mu.
func (c *Client) send(frames ...string) error {
	if err := c.deadline(); err != nil {
		return err
	}
	for _, frame := range frames {
		if err := transport.WriteFrame(c.conn, frame); err != nil {
			if c.pendingReply() == common.RespTooManyRequests {
				return c.fail(ErrRateLimited)
			}
			return c.fail(fmt.Errorf("send failed: %w", err))
		}
	}
	return nil
}

// pendingReply reads a frame the server sent before it dropped the
// connection. It returns "" if there is none. The caller must hold c.mu.
func (c *Client) pendingReply() string {
	_ = c.conn.SetReadDeadline(time.Now().Add(pendingReplyTimeout))
	msg, err := transport.ReadFrame(c.conn, 0)
	if err != nil {
		return ""
	}
	return msg
}

// recv reads one frame. The caller must hold c.mu.
func (c *Client) recv() (string, error) {
	msg, err := transport.ReadFrame(c.conn, 0)
	if err != nil {
		return "", c.fail(fmt.Errorf("receive failed: %w", err))
	}
	return msg, nil
}

// deadline applies the request timeout to the connection
func (c *Client) deadline() error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if t := c.config.Timeout(); t > 0 {
		return c.conn.SetDeadline(time.Now().Add(t))
	}
	return nil
}

// checkReply maps the generic replies shared by all commands to errors.
// Replies that terminate the session tear the connection down.
func (c *Client) checkReply(resp string) error {
	switch resp {
	case common.RespTooManyRequests:
		return c.fail(ErrRateLimited)
	case common.RespInvalidRequest:
		return ErrInvalidRequest
	case common.RespInternalError:
		return ErrServerError
	case "":
		return c.fail(fmt.Errorf("%w: empty reply", ErrProtocolViolation))
	}
	return nil
}

// violation tears the connection down because of an unexpected reply
func (c *Client) violation(cmd common.Verb, resp string) error {
	return c.fail(fmt.Errorf("%w: unexpected reply to %s: %q", ErrProtocolViolation, cmd, resp))
}

// fail closes the connection and returns err
func (c *Client) fail(err error) error {
	if c.conn != nil {
		Logger.Debugf("dropping connection of %s: %v", c.config.ClientID, err)
		_ = c.closeConn()
	}
	return err
}

// closeConn closes the connection if there is one. The caller must hold c.mu.
func (c *Client) closeConn() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
