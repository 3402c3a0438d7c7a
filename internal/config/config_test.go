package config

import "testing"

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"VIDCALL_DOMAIN", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearClientEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Fatalf("domain %q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Fatalf("stun %q, want %q", cfg.STUNServer, DefaultSTUN)
	}
	if cfg.WebSocketURL != "ws://localhost:3001/ws" {
		t.Fatalf("websocket url %q", cfg.WebSocketURL)
	}
	if cfg.StatsURL != "http://localhost:3001/stats" {
		t.Fatalf("stats url %q", cfg.StatsURL)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	clearClientEnv(t)
	t.Setenv("VIDCALL_DOMAIN", "call.example.com")
	t.Setenv("STUN_SERVER", "stun:stun.example.com:3478")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != "call.example.com" {
		t.Fatalf("domain %q", cfg.Domain)
	}
	if cfg.STUNServer != "stun:stun.example.com:3478" {
		t.Fatalf("stun %q", cfg.STUNServer)
	}

	// A public domain gets secure schemes.
	if cfg.WebSocketURL != "wss://call.example.com/ws" {
		t.Fatalf("websocket url %q", cfg.WebSocketURL)
	}
	if cfg.StatsURL != "https://call.example.com/stats" {
		t.Fatalf("stats url %q", cfg.StatsURL)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	clearClientEnv(t)
	t.Setenv("VIDCALL_DOMAIN", "env.example.com")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != "flag.example.com" {
		t.Fatalf("flag did not win: %q", cfg.Domain)
	}
}

func TestForceRelayRequiresTURN(t *testing.T) {
	clearClientEnv(t)

	if _, err := Load(Options{ForceRelay: true}); err == nil {
		t.Fatalf("force relay accepted without a TURN server")
	}

	cfg, err := Load(Options{ForceRelay: true, TURNServer: "turn:turn.example.com"})
	if err != nil {
		t.Fatalf("load with turn: %v", err)
	}
	if !cfg.ForceRelay {
		t.Fatalf("force relay flag lost")
	}
	urls := cfg.GetTURNServers()
	if len(urls) != 2 || urls[0] != "turn:turn.example.com:3478?transport=udp" {
		t.Fatalf("unexpected turn urls %v", urls)
	}
}

func TestTURNServersEmptyWhenUnset(t *testing.T) {
	clearClientEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetTURNServers() != nil {
		t.Fatalf("turn servers reported without configuration")
	}
}

func TestLoadServerPort(t *testing.T) {
	t.Setenv("PORT", "")
	if cfg := LoadServer(); cfg.Addr != DefaultAddr {
		t.Fatalf("default addr %q", cfg.Addr)
	}

	t.Setenv("PORT", "8080")
	if cfg := LoadServer(); cfg.Addr != ":8080" {
		t.Fatalf("addr %q, want :8080", cfg.Addr)
	}

	t.Setenv("PORT", ":9090")
	if cfg := LoadServer(); cfg.Addr != ":9090" {
		t.Fatalf("addr %q, want :9090", cfg.Addr)
	}
}
