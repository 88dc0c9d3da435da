package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultEndpoint          = "0.0.0.0:5000"
	DefaultAcceptTimeout     = time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultRateLimit         = 10
	DefaultRateWindow        = 60 * time.Second
	DefaultRateSweepInterval = 5 * time.Minute
	DefaultMaxFrameSize      = 1 << 20 // 1 MiB
	DefaultLogLevel          = "info"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the server.
type ServerConfig struct {
	// Endpoint is the address the TLS listener binds to
	Endpoint string
	// CertFile and KeyFile hold the PEM encoded certificate and key.
	// If both are empty a self-signed certificate is generated at startup.
	CertFile string
	KeyFile  string

	// AcceptTimeout bounds a single accept call so the accept loop can observe shutdown
	AcceptTimeout time.Duration
	// HandshakeTimeout bounds the TLS handshake of a new connection
	HandshakeTimeout time.Duration
	// TimeoutSecond is the read/write deadline per frame (0 = wait forever)
	TimeoutSecond int64

	// Rate limiting per client identity
	RateLimit         int
	RateWindow        time.Duration
	RateSweepInterval time.Duration

	// MaxFrameSize is the largest accepted frame payload in bytes
	MaxFrameSize uint32

	// AdminEndpoint is the address of the HTTP admin endpoint (empty = disabled)
	AdminEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a configuration with all defaults applied.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:          DefaultEndpoint,
		AcceptTimeout:     DefaultAcceptTimeout,
		HandshakeTimeout:  DefaultHandshakeTimeout,
		RateLimit:         DefaultRateLimit,
		RateWindow:        DefaultRateWindow,
		RateSweepInterval: DefaultRateSweepInterval,
		MaxFrameSize:      DefaultMaxFrameSize,
		LogLevel:          DefaultLogLevel,
	}
}

// Validate checks the configuration for values the server cannot work with.
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("cert-file and key-file must be set together")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be positive, got %d", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rate-window must be positive, got %s", c.RateWindow)
	}
	if c.AcceptTimeout <= 0 {
		return fmt.Errorf("accept-timeout must be positive, got %s", c.AcceptTimeout)
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.TimeoutSecond)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Timeout returns the per frame deadline as a duration.
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// MarshalYAML renders durations in their human readable form.
func (c ServerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Endpoint          string `yaml:"endpoint"`
		CertFile          string `yaml:"cert-file"`
		KeyFile           string `yaml:"key-file"`
		AcceptTimeout     string `yaml:"accept-timeout"`
		HandshakeTimeout  string `yaml:"handshake-timeout"`
		TimeoutSecond     int64  `yaml:"timeout"`
		RateLimit         int    `yaml:"rate-limit"`
		RateWindow        string `yaml:"rate-window"`
		RateSweepInterval string `yaml:"rate-sweep-interval"`
		MaxFrameSize      uint32 `yaml:"max-frame-size"`
		AdminEndpoint     string `yaml:"admin-endpoint"`
		LogLevel          string `yaml:"log-level"`
	}{
		Endpoint:          c.Endpoint,
		CertFile:          c.CertFile,
		KeyFile:           c.KeyFile,
		AcceptTimeout:     c.AcceptTimeout.String(),
		HandshakeTimeout:  c.HandshakeTimeout.String(),
		TimeoutSecond:     c.TimeoutSecond,
		RateLimit:         c.RateLimit,
		RateWindow:        c.RateWindow.String(),
		RateSweepInterval: c.RateSweepInterval.String(),
		MaxFrameSize:      c.MaxFrameSize,
		AdminEndpoint:     c.AdminEndpoint,
		LogLevel:          c.LogLevel,
	}, nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Accept Timeout", c.AcceptTimeout.String())
	addField("Handshake Timeout", c.HandshakeTimeout.String())
	if c.TimeoutSecond > 0 {
		addField("Frame Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	} else {
		addField("Frame Timeout", "disabled")
	}
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))

	addSection("TLS")
	if c.CertFile == "" {
		addField("Certificate", "self-signed (generated)")
	} else {
		addField("Certificate", c.CertFile)
		addField("Key", c.KeyFile)
	}

	addSection("Rate Limiting")
	addField("Requests per Window", strconv.Itoa(c.RateLimit))
	addField("Window", c.RateWindow.String())
	addField("Sweep Interval", c.RateSweepInterval.String())

	addSection("Admin")
	if c.AdminEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.AdminEndpoint)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the parameters a client needs to reach the server.
type ClientConfig struct {
	// Endpoint is the address of the server
	Endpoint string
	// ClientID is the identifier sent with CONNECT
	ClientID string

	// CAFile is a PEM file with the certificate(s) used to verify the server.
	// If empty the system roots are used.
	CAFile string
	// ServerName overrides the name used for hostname verification (defaults to the endpoint host)
	ServerName string
	// InsecureSkipHostname verifies the certificate chain but not the hostname
	InsecureSkipHostname bool

	// TimeoutSecond bounds dialing and every request (0 = no timeout)
	TimeoutSecond int
}

// Timeout returns the client timeout as a duration.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Client ID", c.ClientID)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("TLS")
	if c.CAFile == "" {
		addField("CA", "system roots")
	} else {
		addField("CA", c.CAFile)
	}
	if c.ServerName != "" {
		addField("Server Name", c.ServerName)
	}
	addField("Verify Hostname", strconv.FormatBool(!c.InsecureSkipHostname))

	return sb.String()
}
