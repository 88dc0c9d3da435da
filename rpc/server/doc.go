// Package server implements the sKV server: a TLS listener that serves one
// session per connection against a shared key-value store.
//
// Each accepted connection runs through the session state machine
//
//	AWAITING_HANDSHAKE -> ACTIVE -> TERMINATED
//
// The handshake consists of the TLS handshake followed by a single
// "CONNECT <id>" frame. Once ACTIVE, every command is admitted by the per
// identity rate limiter before it is read. Commands are executed through an
// IServerAdapter, NewIStoreServerAdapter translates PUT, GET and DELETE into
// store.IStore calls.
//
// Key Components:
//
//   - Server: the accept loop. Accepts are bounded by the accept timeout so
//     that Close and context cancellation are observed promptly. Shutdown is
//     cooperative, running sessions are joined with Wait.
//
//   - IServerAdapter: executes a single command against a store and returns
//     the reply frames.
//
//   - Admin endpoint: optional HTTP listener serving /healthz, /stats (JSON)
//     and /metrics (Prometheus text format).
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Endpoint = "0.0.0.0:5000"
//
//	s := server.NewServer(
//	  config,
//	  tls.NewServerConnector(),
//	  lstore.NewLocalStore(),
//	  ratelimit.New(config.RateLimit, config.RateWindow),
//	  identity.NewRegistry(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//	s.Wait()
package server
