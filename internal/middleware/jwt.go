package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/examly/exam-go-api/internal/auth"
	"github.com/examly/exam-go-api/internal/utils"
)

// JWTProtected validates bearer tokens and rejects tokens revoked through
// logout. The verified principal lands in the request locals.
func JWTProtected(issuer *auth.TokenIssuer, revoker auth.TokenRevoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := issuer.ParseAccess(tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if revoker != nil && claims.ID != "" {
			revoked, err := revoker.IsRevoked(c.Context(), claims.ID)
			if err == nil && revoked {
				return utils.SendError(c, fiber.StatusUnauthorized, "token revoked")
			}
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", strings.ToLower(strings.TrimSpace(claims.Role)))
		c.Locals("access_token", tokenString)

		return c.Next()
	}
}
