package server

import (
	"net/http"
	"testing"

	"github.com/lawnchairsociety/thornwood/internal/config"
)

// limiterStep is one acquire (or release) against a limiter and the result
// expected from TryAcquire.
type limiterStep struct {
	ip      string
	release bool
	want    bool
}

func TestConnLimiter_Limits(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.ConnectionsConfig
		steps []limiterStep
	}{
		{
			name: "per IP",
			cfg:  config.ConnectionsConfig{MaxPerIP: 2, MaxTotal: 100},
			steps: []limiterStep{
				{ip: "10.1.0.1", want: true},
				{ip: "10.1.0.1", want: true},
				{ip: "10.1.0.1", want: false},
				{ip: "10.1.0.2", want: true},
				{ip: "10.1.0.1", release: true},
				{ip: "10.1.0.1", want: true},
			},
		},
		{
			name: "total",
			cfg:  config.ConnectionsConfig{MaxPerIP: 10, MaxTotal: 3},
			steps: []limiterStep{
				{ip: "10.1.0.1", want: true},
				{ip: "10.1.0.2", want: true},
				{ip: "10.1.0.3", want: true},
				{ip: "10.1.0.4", want: false},
				{ip: "10.1.0.2", release: true},
				{ip: "10.1.0.4", want: true},
				{ip: "10.1.0.5", want: false},
			},
		},
		{
			name: "release of an idle IP frees nothing",
			cfg:  config.ConnectionsConfig{MaxPerIP: 5, MaxTotal: 1},
			steps: []limiterStep{
				{ip: "10.1.0.1", want: true},
				{ip: "10.1.0.9", release: true},
				{ip: "10.1.0.2", want: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewConnLimiter(tt.cfg)
			for i, step := range tt.steps {
				if step.release {
					limiter.Release(step.ip)
					continue
				}
				if got := limiter.TryAcquire(step.ip); got != step.want {
					t.Fatalf("step %d: TryAcquire(%q) = %v, want %v", i, step.ip, got, step.want)
				}
			}
		})
	}
}

func TestConnLimiter_Unlimited(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{})

	for i := 0; i < 64; i++ {
		if !limiter.TryAcquire("10.1.0.1") {
			t.Fatalf("session %d rejected with limits disabled", i)
		}
	}
	if got := limiter.IPCount("10.1.0.1"); got != 64 {
		t.Errorf("IPCount() = %d, want 64", got)
	}
}

func TestConnLimiter_Counts(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{MaxPerIP: 10, MaxTotal: 100})

	limiter.Release("10.1.0.9")
	if total, ips := limiter.Stats(); total != 0 || ips != 0 {
		t.Fatalf("Stats() = %d, %d on an empty limiter", total, ips)
	}

	limiter.TryAcquire("10.1.0.1")
	limiter.TryAcquire("10.1.0.1")
	limiter.TryAcquire("10.1.0.2")

	if total, ips := limiter.Stats(); total != 3 || ips != 2 {
		t.Errorf("Stats() = %d, %d, want 3, 2", total, ips)
	}
	for ip, want := range map[string]int{"10.1.0.1": 2, "10.1.0.2": 1, "10.1.0.3": 0} {
		if got := limiter.IPCount(ip); got != want {
			t.Errorf("IPCount(%q) = %d, want %d", ip, got, want)
		}
	}

	limiter.Release("10.1.0.2")
	if total, ips := limiter.Stats(); total != 2 || ips != 1 {
		t.Errorf("Stats() after release = %d, %d, want 2, 1", total, ips)
	}
}

func TestExtractIP(t *testing.T) {
	for in, want := range map[string]string{
		"10.1.0.1:40022":  "10.1.0.1",
		"[::1]:8080":      "::1",
		"localhost:8080":  "localhost",
		"10.1.0.1":        "10.1.0.1",
		"[2001:db8::7]:1": "2001:db8::7",
	} {
		if got := extractIP(in); got != want {
			t.Errorf("extractIP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.7", "", "10.0.0.1:5000", "203.0.113.7"},
		{"forwarded chain uses first hop", "203.0.113.7, 70.41.3.18", "", "10.0.0.1:5000", "203.0.113.7"},
		{"real ip header", "", " 203.0.113.8 ", "10.0.0.1:5000", "203.0.113.8"},
		{"forwarded wins over real ip", "203.0.113.7", "198.51.100.2", "10.0.0.1:5000", "203.0.113.7"},
		{"blank first hop falls back to real ip", " , 70.41.3.18", "198.51.100.2", "10.0.0.1:5000", "198.51.100.2"},
		{"no headers", "", "", "192.168.4.20:5000", "192.168.4.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{RemoteAddr: tt.remoteAddr, Header: make(http.Header)}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getRealIP(req); got != tt.want {
				t.Errorf("getRealIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
