package middlewares

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"dbrest/internal/config"
	"dbrest/internal/logger"
	"dbrest/internal/responses"
	"dbrest/internal/utils"
)

// ClaimsKey holds the verified token claims, or the anonymous principal.
const ClaimsKey = "claims"

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Authenticate verifies the bearer token when cfg enables verification.
// Otherwise every request runs as the anonymous principal. revoked may be nil.
func Authenticate(cfg config.AuthConfig, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.VerifyToken {
			c.Set(ClaimsKey, utils.AnonymousClaims())
			c.Next()
			return
		}

		// Expected format: "Bearer <token>"
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			responses.Forbidden(c, &utils.AuthError{Reason: "missing or malformed Authorization header"})
			return
		}

		claims, err := utils.VerifyJWT(parts[1], cfg.Algorithm, cfg.SecretKey)
		if err != nil {
			responses.Forbidden(c, err)
			return
		}

		if jti := utils.TokenID(claims); revoked != nil && jti != "" {
			blacklisted, err := revoked.IsBlacklisted(c.Request.Context(), jti)
			if err != nil {
				logger.Error("Checking revocation of token %s: %v", jti, err)
				responses.Forbidden(c, &utils.AuthError{Reason: "token revocation check failed", Err: err})
				return
			}
			if blacklisted {
				responses.Forbidden(c, &utils.AuthError{Reason: "token has been revoked"})
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
