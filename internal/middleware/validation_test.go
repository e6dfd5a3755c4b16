package middleware

import (
	"strings"
	"testing"
)

func TestValidateContestantID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "c1", "c1", false},
		{"with dash and underscore", "act_07-b", "act_07-b", false},
		{"trimmed", "  c2 ", "c2", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too long 33", strings.Repeat("a", 33), "", true},
		{"exactly 32", strings.Repeat("a", 32), strings.Repeat("a", 32), false},
		{"invalid chars", "c1; DROP", "", true},
		{"path traversal", "../c1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateContestantID(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateClientID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"default", "local", "local", false},
		{"hostname", "kiosk-3.venue.example", "kiosk-3.venue.example", false},
		{"empty", "", "", true},
		{"too long 65", strings.Repeat("x", 65), "", true},
		{"spaces", "front desk", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateClientID(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/contestants/c1/vote", "/api/contestants/:contestantId/vote"},
		{"/api/contestants/c1/vote/retry", "/api/contestants/:contestantId/vote/retry"},
		{"/api/snapshot", "/api/snapshot"},
		{"/api/contestants/", "/api/contestants/"},
	}
	for _, tt := range tests {
		if got := SanitizePath(tt.in); got != tt.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
