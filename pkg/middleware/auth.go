// Package middleware provides the HTTP auth guards.
package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/service/auth"
	"github.com/ineza/schoolpay/webapi/common"
)

// JwtProtected rejects requests without a valid bearer token. The verified
// token lands in c.Locals("user").
func JwtProtected(cfg config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.Secret)},
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
			"Missing or malformed JWT", err.Error())
	}
	return common.ProblemDetailsJSON(c, fiber.StatusUnauthorized,
		"Invalid or expired JWT", err.Error())
}

// RequireRole allows only the named roles through. Admins always pass.
func RequireRole(roles ...user.Role) fiber.Handler {
	allowed := make(map[user.Role]bool, len(roles)+1)
	allowed[user.RoleAdmin] = true
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		claims, err := CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusUnauthorized,
				"Unauthorized", "missing user context")
		}
		if !allowed[claims.Role] {
			return common.ProblemDetailsJSON(c, fiber.StatusForbidden,
				"Forbidden", "insufficient role")
		}
		return c.Next()
	}
}

// CurrentClaims extracts the typed claims of the authenticated user.
func CurrentClaims(c *fiber.Ctx) (auth.Claims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return auth.Claims{}, user.ErrUserUnauthorized
	}
	return auth.ParseClaims(token)
}
