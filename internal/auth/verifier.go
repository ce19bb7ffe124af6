package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned for missing, malformed, expired or otherwise
// invalid bearer tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier validates a bearer token and returns the stable id of its user.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}
