package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/sKV/lib/identity"
	"github.com/ValentinKolb/sKV/lib/ratelimit"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// Server accepts TLS connections and runs one handler goroutine per client.
// The store, the rate limiter and the identity registry are shared by all
// handlers and each guards itself.
type Server struct {
	config    common.ServerConfig
	connector transport.IServerConnector
	adapter   IServerAdapter

	store    store.IStore
	limiter  *ratelimit.Limiter
	registry *identity.Registry
	metrics  *serverMetrics

	mu        sync.Mutex
	listener  transport.Listener
	admin     *http.Server
	adminAddr net.Addr
	started   time.Time

	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	handlers  sync.WaitGroup
}

// NewServer creates a new server
// It takes a config, the connector used to accept connections and the shared
// state as parameters.
//
// Usage:
//
//	s := server.NewServer(
//		config,
//		tls.NewServerConnector(),
//		lstore.NewLocalStore(),
//		ratelimit.New(config.RateLimit, config.RateWindow),
//		identity.NewRegistry(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(
	config common.ServerConfig,
	connector transport.IServerConnector,
	store store.IStore,
	limiter *ratelimit.Limiter,
	registry *identity.Registry,
) *Server {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if config.AcceptTimeout <= 0 {
		config.AcceptTimeout = common.DefaultAcceptTimeout
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = common.DefaultMaxFrameSize
	}

	s := &Server{
		config:    config,
		connector: connector,
		adapter:   NewIStoreServerAdapter(),
		store:     store,
		limiter:   limiter,
		registry:  registry,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.metrics = newServerMetrics(s)
	return s
}

// Listen binds the TLS listener and, if configured, the admin endpoint.
// Calling Serve without Listen binds implicitly.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := s.connector.Listen(s.config)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Endpoint, err)
	}

	if s.config.AdminEndpoint != "" {
		if err := s.startAdmin(); err != nil {
			_ = ln.Close()
			return err
		}
	}

	s.listener = ln
	s.started = time.Now()
	close(s.ready)
	Logger.Infof("server listening on %s (%s)", ln.Addr(), s.connector.GetName())
	return nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
// Handlers that are still running when Serve returns are not interrupted,
// use Wait to join them.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	defer ln.Close()

	// Periodically drop identities without recent requests
	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.config.RateSweepInterval > 0 {
		go s.limiter.Run(sweepCtx, s.config.RateSweepInterval)
	}

	for {
		if s.stopping(ctx) {
			Logger.Infof("server stopped accepting connections")
			return nil
		}

		// a bounded accept lets the loop observe shutdown
		if err := ln.SetDeadline(time.Now().Add(s.config.AcceptTimeout)); err != nil {
			if s.stopping(ctx) || errors.Is(err, net.ErrClosed) {
				Logger.Infof("server stopped accepting connections")
				return nil
			}
			return fmt.Errorf("failed to set accept deadline: %w", err)
		}

		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if s.stopping(ctx) || errors.Is(err, net.ErrClosed) {
				Logger.Infof("server stopped accepting connections")
				return nil
			}
			Logger.Warningf("accept failed: %v", err)
			continue
		}

		s.metrics.connectionsAccepted.Inc()
		Logger.Debugf("accepted connection from %s", conn.RemoteAddr())

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close stops the accept loop and the admin endpoint. Active sessions keep running.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		ln, admin := s.listener, s.admin
		s.mu.Unlock()

		if ln != nil {
			if closeErr := ln.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
				err = closeErr
			}
		}
		if admin != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if adminErr := admin.Shutdown(ctx); adminErr != nil && err == nil {
				err = adminErr
			}
		}
	})
	return err
}

// Wait blocks until all connection handlers have terminated.
func (s *Server) Wait() {
	s.handlers.Wait()
}

// Addr returns the address of the TLS listener or nil if the server is not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) stopping(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
