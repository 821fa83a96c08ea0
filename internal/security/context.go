package security

import (
	"context"
	"strings"

	"beachrental-backend/internal/domain"
)

type actorKey struct{}

// WithActor returns a copy of ctx carrying the authenticated actor.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or nil.
func ActorFromContext(ctx context.Context) *domain.Actor {
	a, _ := ctx.Value(actorKey{}).(*domain.Actor)
	return a
}

// BearerToken strips an optional "Bearer " prefix from an authorization value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Authenticate validates an access token and resolves it to an actor.
func Authenticate(tm TokenManager, token string) (*domain.Actor, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := tm.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims.Actor()
}
