package api

import (
	"net/http"
	"time"
)

// Config holds configuration for the HTTP API.
type Config struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// ReadHeaderTimeout bounds request header reads.
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// WSWriteTimeout bounds a single websocket write.
	WSWriteTimeout time.Duration `yaml:"ws_write_timeout"`
	// WSPingInterval is the websocket keepalive period.
	WSPingInterval time.Duration `yaml:"ws_ping_interval"`
	// WSBuffer is the event buffer of each websocket subscriber.
	WSBuffer int `yaml:"ws_buffer"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		WSWriteTimeout:    5 * time.Second,
		WSPingInterval:    30 * time.Second,
		WSBuffer:          128,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.WSWriteTimeout <= 0 {
		c.WSWriteTimeout = def.WSWriteTimeout
	}
	if c.WSPingInterval <= 0 {
		c.WSPingInterval = def.WSPingInterval
	}
	if c.WSBuffer <= 0 {
		c.WSBuffer = def.WSBuffer
	}
	return c
}

// NewServer wraps h in an http.Server configured from c.
func NewServer(c Config, h http.Handler) *http.Server {
	c = c.withDefaults()
	return &http.Server{
		Addr:              c.Addr,
		Handler:           h,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
	}
}
