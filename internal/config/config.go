package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values.
const (
	DefaultDomain = "localhost:3001"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
	DefaultTURN   = "" // Optional, empty by default
	DefaultAddr   = ":3001"
)

// Config holds client configuration.
type Config struct {
	// Domain is the signaling server host (host or host:port).
	Domain string

	// WebSocketURL and StatsURL are constructed from the domain.
	WebSocketURL string
	StatsURL     string

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN-relayed candidates.
	ForceRelay bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstNonEmpty(opts.Domain, os.Getenv("VIDCALL_DOMAIN"), DefaultDomain)
	stunServer := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"), "")
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"), "")

	if opts.ForceRelay && turnServer == "" {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	wsScheme, httpScheme := "wss", "https"
	if isLoopback(domain) {
		wsScheme, httpScheme = "ws", "http"
	}

	return &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", wsScheme, domain),
		StatsURL:     fmt.Sprintf("%s://%s/stats", httpScheme, domain),
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   opts.ForceRelay,
	}, nil
}

// ServerConfig holds signaling server configuration.
type ServerConfig struct {
	Addr string
}

// LoadServer reads the server listen address from the PORT environment
// variable, falling back to the default.
func LoadServer() *ServerConfig {
	addr := DefaultAddr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + strings.TrimPrefix(port, ":")
	}
	return &ServerConfig{Addr: addr}
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isLoopback(domain string) bool {
	host := domain
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		host = domain[:i]
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "[::1]"
}
