// Package app provides billing profile persistence for authenticated requests.
package app

import (
	"context"

	"github.com/ItsBrandon78/careerheap.com-sub001/auth"
)

// UpsertProfileFromClaims creates a free-tier billing profile the first
// time an authenticated subject is seen. Existing rows are untouched.
func UpsertProfileFromClaims(ctx context.Context, claims *auth.Claims) error {
	if db == nil {
		return nil
	}
	if claims == nil || claims.Subject == "" {
		return nil
	}
	return insertDefaultProfile(ctx, claims.Subject, claims.Email)
}
