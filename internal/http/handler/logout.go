package handler

import "github.com/gofiber/fiber/v2"

// Logout - Token stateless, client cukup membuang token
func (h *Handler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logout berhasil",
	})
}
