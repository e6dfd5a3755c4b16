package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
)

// hit sends n requests for each path and returns the status codes in order.
func hit(t *testing.T, app *fiber.App, method string, n int, paths ...string) []int {
	t.Helper()
	var codes []int
	for _, path := range paths {
		for i := 0; i < n; i++ {
			resp, err := app.Test(httptest.NewRequest(method, path, nil))
			if err != nil {
				t.Fatalf("%s %s: %v", method, path, err)
			}
			resp.Body.Close()
			codes = append(codes, resp.StatusCode)
		}
	}
	return codes
}

func limitedApp(rl *RateLimiter, method, route string) *fiber.App {
	app := fiber.New()
	app.Add([]string{method}, route, rl.Handler(), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestPreconfiguredLimiters(t *testing.T) {
	tests := []struct {
		name   string
		rl     *RateLimiter
		method string
		route  string
		path   string
		max    int
	}{
		{"read", NewReadRateLimiter(), fiber.MethodGet, "/api/snapshot", "/api/snapshot", 120},
		{"refetch", NewRefetchRateLimiter(), fiber.MethodPost, "/api/snapshot/refetch", "/api/snapshot/refetch", 12},
		{"vote reset", NewVoteResetRateLimiter(), fiber.MethodDelete, "/api/vote", "/api/vote", 5},
		{"vote submit", NewVoteSubmitRateLimiter(), fiber.MethodPost, "/api/contestants/:contestantId/vote", "/api/contestants/c1/vote", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := limitedApp(tt.rl, tt.method, tt.route)
			codes := hit(t, app, tt.method, tt.max+1, tt.path)
			for i, code := range codes[:tt.max] {
				if code != fiber.StatusOK {
					t.Fatalf("request %d status = %d, want 200", i+1, code)
				}
			}
			if last := codes[tt.max]; last != fiber.StatusTooManyRequests {
				t.Errorf("request %d status = %d, want 429", tt.max+1, last)
			}
		})
	}
}

func TestRateLimiter_PerContestantKeys(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute, KeyFn: KeyByContestant})
	app := limitedApp(rl, fiber.MethodPost, "/api/contestants/:contestantId/vote")

	codes := hit(t, app, fiber.MethodPost, 2, "/api/contestants/c1/vote", "/api/contestants/c2/vote")
	want := []int{fiber.StatusOK, fiber.StatusTooManyRequests, fiber.StatusOK, fiber.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}

func TestRateLimiter_Headers(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute, KeyFn: KeyByIP})
	app := limitedApp(rl, fiber.MethodGet, "/api/snapshot")

	tests := []struct {
		wantStatus    int
		wantRemaining string
		wantRetry     bool
	}{
		{fiber.StatusOK, "1", false},
		{fiber.StatusOK, "0", false},
		{fiber.StatusTooManyRequests, "0", true},
	}
	for i, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/snapshot", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("request %d status = %d, want %d", i+1, resp.StatusCode, tt.wantStatus)
		}
		if got := resp.Header.Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("request %d limit header = %q, want 2", i+1, got)
		}
		if got := resp.Header.Get("X-RateLimit-Remaining"); got != tt.wantRemaining {
			t.Errorf("request %d remaining header = %q, want %q", i+1, got, tt.wantRemaining)
		}
		if got := resp.Header.Get("Retry-After") != ""; got != tt.wantRetry {
			t.Errorf("request %d Retry-After present = %v, want %v", i+1, got, tt.wantRetry)
		}
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: 50 * time.Millisecond, KeyFn: KeyByIP})
	app := limitedApp(rl, fiber.MethodGet, "/api/snapshot")

	if codes := hit(t, app, fiber.MethodGet, 2, "/api/snapshot"); codes[1] != fiber.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", codes[1])
	}

	time.Sleep(80 * time.Millisecond)

	if codes := hit(t, app, fiber.MethodGet, 1, "/api/snapshot"); codes[0] != fiber.StatusOK {
		t.Errorf("request after window status = %d, want 200", codes[0])
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute, KeyFn: KeyByIP})

	for i, want := range []bool{true, true, false} {
		if got := rl.Allow("ip:a"); got != want {
			t.Errorf("ip:a request %d allowed = %v, want %v", i+1, got, want)
		}
	}
	if !rl.Allow("ip:b") {
		t.Error("ip:b should have its own window")
	}
}
