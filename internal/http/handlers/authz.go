package handlers

import (
	applog "autolot/internal/log"
	"autolot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AdminHeader carries the shared admin access code.
const AdminHeader = "x-admin-code"

// RequireAdmin refuses the request with 401 unless the gate accepts the admin header.
// Nothing downstream runs on refusal, so no store is touched.
func RequireAdmin(gate services.AccessGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Get(AdminHeader)
		if !gate.Verify(code) {
			applog.Security(c, "access.denied.admin", map[string]any{"header_present": code != ""})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		c.Locals(applog.AdminLocal, true)
		return c.Next()
	}
}
