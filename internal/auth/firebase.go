package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultFirebaseJWKSURL serves the public keys that sign Firebase ID tokens.
const DefaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// FirebaseClaims is the subset of Firebase ID token claims the API uses.
type FirebaseClaims struct {
	jwt.RegisteredClaims
	AuthTime int64  `json:"auth_time"`
	Email    string `json:"email"`
}

// FirebaseVerifier verifies Firebase Authentication ID tokens. The user id is
// the token subject (the Firebase uid).
type FirebaseVerifier struct {
	jwks      keyfunc.Keyfunc
	projectID string
	logger    *zap.Logger
}

// NewFirebaseVerifier fetches signing keys from jwksURL. keyfunc keeps them
// cached and refreshes them in the background.
func NewFirebaseVerifier(ctx context.Context, projectID, jwksURL string, logger *zap.Logger) (*FirebaseVerifier, error) {
	if jwksURL == "" {
		jwksURL = DefaultFirebaseJWKSURL
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}
	logger.Info("firebase verifier initialized", zap.String("jwks_url", jwksURL), zap.String("project_id", projectID))
	return NewFirebaseVerifierWithKeys(jwks, projectID, logger)
}

// NewFirebaseVerifierWithKeys builds a verifier around an existing key set.
func NewFirebaseVerifierWithKeys(jwks keyfunc.Keyfunc, projectID string, logger *zap.Logger) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id cannot be empty")
	}
	return &FirebaseVerifier{jwks: jwks, projectID: projectID, logger: logger.Named("firebase")}, nil
}

func (v *FirebaseVerifier) VerifyToken(_ context.Context, tokenString string) (string, error) {
	claims := &FirebaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		v.logger.Debug("token rejected", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return "", ErrUnauthenticated
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return claims.Subject, nil
}
