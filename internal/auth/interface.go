package auth

import "mediafolders/internal/domain/models"

// JWTVerifier verifies bearer tokens. The middleware only depends on this
// interface, so tests can substitute a fake.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.ActorClaims, error)

	// Close releases any resources held by the verifier
	Close() error
}
