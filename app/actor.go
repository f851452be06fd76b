package app

import (
	"github.com/ItsBrandon78/careerheap.com-sub001/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	anonCookieName  = "ch_anon"
	cookieMaxAge    = 60 * 60 * 24 * 365
	anonActorPrefix = "anon_"
)

// Actor is the unit usage is metered against: a signed-in account or an
// anonymous visitor with a durable cookie id.
type Actor struct {
	ID            string
	Email         string
	Authenticated bool
	// NewAnonID means the id was minted on this request and must be set as
	// a response cookie before the handler returns.
	NewAnonID bool
}

// resolveActor determines the caller's identity. Verified claims win;
// otherwise the anonymous cookie id is used, minted once if absent.
func resolveActor(c *gin.Context) Actor {
	if claims, ok := auth.ClaimsFromContext(c.Request.Context()); ok && claims.Subject != "" {
		return Actor{
			ID:            claims.Subject,
			Email:         claims.Email,
			Authenticated: true,
		}
	}
	if v, err := c.Cookie(anonCookieName); err == nil && v != "" {
		return Actor{ID: v}
	}
	return Actor{
		ID:        anonActorPrefix + uuid.NewString(),
		NewAnonID: true,
	}
}

// persistAnonID writes the freshly minted anonymous id back to the client.
func persistAnonID(c *gin.Context, actor Actor) {
	if !actor.NewAnonID {
		return
	}
	c.SetCookie(anonCookieName, actor.ID, cookieMaxAge, "/", "", false, true)
}
