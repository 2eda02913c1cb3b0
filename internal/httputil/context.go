package httputil

import (
	"context"
	"net/http"

	models "mediafolders/internal/domain/models/explorer"
)

// Context key type to avoid collisions
type contextKey string

const (
	actorKey contextKey = "actor"
)

// WithActor adds the authenticated actor to the request context
func WithActor(r *http.Request, actor models.Actor) *http.Request {
	ctx := context.WithValue(r.Context(), actorKey, actor)
	return r.WithContext(ctx)
}

// GetActor retrieves the actor from context, returns models.Anonymous if not found
func GetActor(r *http.Request) models.Actor {
	actor, ok := r.Context().Value(actorKey).(models.Actor)
	if !ok {
		return models.Anonymous
	}
	return actor
}
