package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"service-queue/internal/config"
	"service-queue/internal/models"
)

const claimsKey = "operator_claims"

func JWTAuth(tokens *config.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing authorization header",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid authorization format",
			})
		}

		claims, err := tokens.ValidateToken(tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		c.Locals(claimsKey, claims)
		c.Locals("operator_id", claims.OperatorID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// Claims returns the operator claims stored by JWTAuth, nil on public routes.
func Claims(c *fiber.Ctx) *config.OperatorClaims {
	claims, _ := c.Locals(claimsKey).(*config.OperatorClaims)
	return claims
}

// PermissionAuth requires every level letter (C, R, U, D) on resource,
// e.g. PermissionAuth("SQM_ENTRY", "C"). Must run after JWTAuth.
func PermissionAuth(resource, level string) fiber.Handler {
	resource = strings.ToUpper(resource)
	level = strings.ToUpper(level)

	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing operator session",
			})
		}

		granted := models.ParsePermissions(claims.Permissions)[resource]
		for _, want := range level {
			if !strings.ContainsRune(granted, want) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"success": false,
					"error":   "Anda tidak memiliki akses ke resource ini",
				})
			}
		}

		return c.Next()
	}
}
