package auth

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, secret string) {
	r.Get("/verify", JWTMiddleware(secret), func(c *fiber.Ctx) error {
		if secret == "" {
			return c.JSON(fiber.Map{"auth_enabled": false})
		}
		subject, _ := c.Locals("operator").(string)
		return c.JSON(fiber.Map{"auth_enabled": true, "subject": subject})
	})
}
