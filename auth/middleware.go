// Package auth provides Gin middleware for enforcing Supabase JWT auth.
package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MiddlewareConfig controls auth enforcement behavior.
type MiddlewareConfig struct {
	// Optional lets requests without a valid bearer token through with no
	// claims in context. Routes that serve anonymous actors use this.
	Optional bool
	// OnAuthenticated runs after a token verifies, before the handler.
	OnAuthenticated func(c *gin.Context, claims *Claims) error
	DisableAuth     bool
}

// Middleware enforces bearer token auth and injects claims into the request context.
func Middleware(verifier *Verifier, cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.DisableAuth || AuthDisabled() {
			claims := &Claims{
				Subject: "local-dev",
				Issuer:  "local",
				Raw:     map[string]any{"sub": "local-dev"},
			}
			attachClaims(c, claims, cfg)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.Optional {
				c.Next()
				return
			}
			log.Printf("auth failure: missing Authorization header path=%s", c.Request.URL.Path)
			respondUnauthorized(c, "missing authorization header")
			return
		}

		token, ok := extractBearerToken(authHeader)
		if !ok {
			if cfg.Optional {
				c.Next()
				return
			}
			log.Printf("auth failure: malformed Authorization header path=%s", c.Request.URL.Path)
			respondUnauthorized(c, "invalid authorization header")
			return
		}

		if verifier == nil {
			if cfg.Optional {
				c.Next()
				return
			}
			respondUnauthorized(c, "auth verifier not configured")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			if cfg.Optional {
				// Expired or garbage token on an anonymous-capable route
				// degrades to the anonymous free tier.
				c.Next()
				return
			}
			log.Printf("auth failure: token invalid path=%s err=%v", c.Request.URL.Path, err)
			respondUnauthorized(c, "invalid token")
			return
		}

		if !attachClaims(c, claims, cfg) {
			return
		}
		c.Next()
	}
}

func attachClaims(c *gin.Context, claims *Claims, cfg MiddlewareConfig) bool {
	if cfg.OnAuthenticated != nil {
		if err := cfg.OnAuthenticated(c, claims); err != nil {
			log.Printf("auth post-verify hook failed sub=%s err=%v", claims.Subject, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "failed to prepare account",
			})
			return false
		}
	}
	ctx := WithClaims(c.Request.Context(), claims)
	c.Request = c.Request.WithContext(ctx)
	return true
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
