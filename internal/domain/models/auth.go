package models

import (
	"github.com/golang-jwt/jwt/v5"

	explorer "mediafolders/internal/domain/models/explorer"
)

// ActorClaims is the JWT claims structure accepted by the explorer API.
// Permissions are read from the top-level "permissions" claim and, for
// tokens issued by Supabase-style providers, from app_metadata.permissions.
type ActorClaims struct {
	jwt.RegisteredClaims                        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string                 `json:"email"`
	Role                 string                 `json:"role"` // "authenticated" or "anon"
	Permissions          []string               `json:"permissions"`
	AppMetadata          map[string]interface{} `json:"app_metadata"`
	IsAnonymous          bool                   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *ActorClaims) GetUserID() string {
	return c.Subject
}

// Actor converts the claims into the actor passed to access checks.
func (c *ActorClaims) Actor() explorer.Actor {
	perms := append([]string(nil), c.Permissions...)
	if raw, ok := c.AppMetadata["permissions"].([]interface{}); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				perms = append(perms, s)
			}
		}
	}
	return explorer.Actor{ID: c.Subject, Permissions: perms}
}
