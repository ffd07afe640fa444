// middleware/caller.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerContextMiddleware extracts the caller's wallet address set by the
// Gateway after wallet-session verification. Identity is always an explicit
// header, never inferred — the ledger itself has no session state.
//
// Secured paths (/s/...) hard-require the header. Public reads pass through
// with an empty caller; confidentiality gating then treats them as an
// outside viewer.
func CallerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := strings.ToLower(strings.TrimSpace(c.Get("X-Caller-Address")))

		path := c.Path()
		isSecured := strings.HasPrefix(path, "/s/")
		if isSecured && caller == "" {
			log.Printf("❌ [CALLER_CTX] X-Caller-Address required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Caller-Address — request must come through gateway with wallet context",
			})
		}

		c.Locals("caller_address", caller)

		return c.Next()
	}
}

// CallerAddress reads the identity attached by CallerContextMiddleware.
func CallerAddress(c *fiber.Ctx) string {
	if v, ok := c.Locals("caller_address").(string); ok {
		return v
	}
	return ""
}
