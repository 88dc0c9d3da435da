package server

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/ValentinKolb/sKV/lib/sanitize"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// connHandler serves a single client connection.
// It is owned by exactly one goroutine.
type connHandler struct {
	server *Server
	conn   net.Conn
	remote string

	// id is set once the identity was registered by this handler
	id string

	// linger is set when the server drops the session right after a reply
	// that the client may not have read yet
	linger bool
}

// lingerTimeout bounds how long input is discarded after a server side drop
const lingerTimeout = time.Second

// handleConn runs the session state machine for conn:
// AWAITING_HANDSHAKE -> ACTIVE -> TERMINATED.
// The identity is released and the connection closed on every exit path.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	h := &connHandler{
		server: s,
		conn:   conn,
		remote: conn.RemoteAddr().String(),
	}
	defer h.terminate()

	if !h.handshake(ctx) {
		return
	}
	h.serve()
}

// --------------------------------------------------------------------------
// States
// --------------------------------------------------------------------------

// handshake performs the TLS handshake and the CONNECT exchange.
// It returns true if the session is ACTIVE afterwards.
func (h *connHandler) handshake(ctx context.Context) bool {
	s := h.server
	timeout := s.config.HandshakeTimeout

	hsCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.connector.Handshake(hsCtx, h.conn); err != nil {
		s.metrics.handshakeFailures.Inc()
		Logger.Warningf("TLS handshake with %s failed: %v", h.remote, err)
		return false
	}

	// the CONNECT frame is bounded by the handshake timeout as well
	if timeout > 0 {
		_ = h.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	msg, err := transport.ReadFrame(h.conn, s.config.MaxFrameSize)
	_ = h.conn.SetReadDeadline(time.Time{})
	if err != nil {
		s.metrics.handshakeFailures.Inc()
		h.logReadError("CONNECT", err)
		if errors.Is(err, transport.ErrFrameTooLarge) || errors.Is(err, transport.ErrNonASCII) {
			s.metrics.connectRejected.Inc()
			h.linger = true
			_ = h.write(common.RespConnectError)
		}
		return false
	}

	cmd := common.ParseCommand(msg)
	if cmd.Verb != common.VerbConnect || !cmd.HasArg || !sanitize.IsValid(cmd.Arg) {
		s.metrics.connectRejected.Inc()
		Logger.Infof("rejected malformed CONNECT from %s", h.remote)
		_ = h.write(common.RespConnectError)
		return false
	}

	if !s.registry.Register(cmd.Arg, h.remote) {
		s.metrics.connectTaken.Inc()
		Logger.Infof("client %s from %s rejected, id already taken", cmd.Arg, h.remote)
		_ = h.write(common.RespConnectTaken)
		return false
	}
	h.id = cmd.Arg

	if err := h.write(common.RespConnectOK); err != nil {
		Logger.Warningf("failed to confirm CONNECT for %s: %v", h.id, err)
		return false
	}
	s.metrics.connectOK.Inc()
	Logger.Infof("client %s connected from %s", h.id, h.remote)
	return true
}

// serve processes commands of an ACTIVE session until it terminates.
func (h *connHandler) serve() {
	s := h.server

	for {
		if !s.limiter.Admit(h.id) {
			s.metrics.rateLimited.Inc()
			Logger.Warningf("client %s exceeded the rate limit, dropping connection", h.id)
			h.linger = true
			_ = h.write(common.RespTooManyRequests)
			return
		}

		msg, err := h.read()
		if err != nil {
			h.logReadError("command", err)
			return
		}
		if msg == "" {
			Logger.Debugf("client %s sent an empty command, closing", h.id)
			return
		}

		start := time.Now()
		cmd := common.ParseCommand(msg)

		// trailing text after DISCONNECT is ignored
		if cmd.Verb == common.VerbDisconnect {
			s.metrics.observeCommand(cmd.Verb, start)
			_ = h.write(common.RespDisconnectOK)
			Logger.Infof("client %s disconnected", h.id)
			return
		}

		replies, err := h.dispatch(cmd)
		if err != nil {
			h.logReadError(string(cmd.Verb), err)
			return
		}
		s.metrics.observeCommand(cmd.Verb, start)
		if err := h.write(replies...); err != nil {
			Logger.Warningf("failed to reply to %s: %v", h.id, err)
			return
		}
	}
}

// terminate releases the identity (if this handler owns it) and closes the connection.
func (h *connHandler) terminate() {
	if h.id != "" {
		h.server.registry.Release(h.id)
	}
	if h.linger {
		h.drain()
	}
	if err := h.conn.Close(); err != nil {
		Logger.Debugf("closing connection to %s: %v", h.remote, err)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch executes cmd through the server adapter. A panic while executing
// the command is answered with a generic error and the session continues.
func (h *connHandler) dispatch(cmd common.Command) (replies []string, err error) {
	s := h.server

	defer func() {
		if r := recover(); r != nil {
			s.metrics.internalErrors.Inc()
			Logger.Errorf("unexpected error processing %s from %s: %v\n%s", cmd.Verb, h.id, r, debug.Stack())
			replies, err = []string{common.RespInternalError}, nil
		}
	}()

	replies, err = s.adapter.Handle(cmd, h.read, s.store)
	if err == nil && len(replies) == 1 && replies[0] == common.RespInvalidRequest {
		s.metrics.invalidRequests.Inc()
		Logger.Debugf("invalid request from %s: %q", h.id, cmd.String())
	}
	return replies, err
}

// read receives one frame, honoring the configured frame timeout
func (h *connHandler) read() (string, error) {
	if t := h.server.config.Timeout(); t > 0 {
		_ = h.conn.SetReadDeadline(time.Now().Add(t))
	}
	return transport.ReadFrame(h.conn, h.server.config.MaxFrameSize)
}

// write sends frames in order, honoring the configured frame timeout
func (h *connHandler) write(frames ...string) error {
	if t := h.server.config.Timeout(); t > 0 {
		_ = h.conn.SetWriteDeadline(time.Now().Add(t))
	}
	for _, frame := range frames {
		if err := transport.WriteFrame(h.conn, frame); err != nil {
			return err
		}
	}
	return nil
}

// drain half-closes the connection and discards client input until the client
// closes its side or lingerTimeout passes, so unread input does not turn the
// close into a reset that discards the last reply.
func (h *connHandler) drain() {
	cw, ok := h.conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_ = h.conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, h.conn)
}

func (h *connHandler) logReadError(stage string, err error) {
	who := h.id
	if who == "" {
		who = h.remote
	}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		Logger.Debugf("%s closed the connection", who)
	case errors.Is(err, transport.ErrFrameTooLarge), errors.Is(err, transport.ErrNonASCII):
		Logger.Warningf("protocol violation by %s while reading %s: %v", who, stage, err)
	default:
		Logger.Infof("reading %s from %s failed: %v", stage, who, err)
	}
}
