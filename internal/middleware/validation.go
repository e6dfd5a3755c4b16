package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits.
const (
	MaxContestantIDLen = 32
	MaxClientIDLen     = 64
)

var (
	// contestantIDRe matches contestant IDs: alphanumeric, dash, underscore.
	contestantIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// clientIDRe allows the same alphabet plus dots and colons (hostnames, device IDs).
	clientIDRe = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateContestantID checks that a contestant ID is well-formed.
func ValidateContestantID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "contestantId is required"
	}
	if len(id) > MaxContestantIDLen {
		return "", "contestantId must be at most 32 characters"
	}
	if !contestantIDRe.MatchString(id) {
		return "", "contestantId contains invalid characters"
	}
	return id, ""
}

// ValidateClientID checks the configured client identity used to key the
// durable vote record.
func ValidateClientID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "clientId is required"
	}
	if len(id) > MaxClientIDLen {
		return "", "clientId must be at most 64 characters"
	}
	if !clientIDRe.MatchString(id) {
		return "", "clientId contains invalid characters"
	}
	return id, ""
}
