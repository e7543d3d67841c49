package services

import (
	"context"
	"fmt"

	"provdesk/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleClaim is the issuer-provided identity extracted from a Google ID
// token assertion.
type GoogleClaim struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates Google ID token assertions. The real backends
// verify the RS256 signature against Google's JWKS; the local/demo backend
// runs in simulation mode and only decodes the claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, assertion string) (*GoogleClaim, error)
}

type googleVerifier struct {
	jwks *keyfunc.JWKS
}

// NewGoogleVerifier fetches Google's signing keys once and keeps them
// refreshed in the background.
func NewGoogleVerifier(ctx context.Context, jwksURL string) (GoogleVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google JWKS: %w", err)
	}
	return &googleVerifier{jwks: jwks}, nil
}

func (v *googleVerifier) Verify(ctx context.Context, assertion string) (*GoogleClaim, error) {
	token, err := jwt.Parse(assertion, v.jwks.Keyfunc)
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidCredentials
	}
	return claimFromToken(token)
}

// insecureVerifier decodes the assertion without checking its signature.
// Only the local demo backend is wired with it.
type insecureVerifier struct{}

func NewInsecureGoogleVerifier() GoogleVerifier {
	return &insecureVerifier{}
}

func (v *insecureVerifier) Verify(ctx context.Context, assertion string) (*GoogleClaim, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(assertion, jwt.MapClaims{})
	if err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return claimFromToken(token)
}

func claimFromToken(token *jwt.Token) (*GoogleClaim, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.ErrInvalidCredentials
	}
	claim := &GoogleClaim{}
	claim.Subject, _ = claims["sub"].(string)
	claim.Email, _ = claims["email"].(string)
	claim.Name, _ = claims["name"].(string)
	claim.Picture, _ = claims["picture"].(string)
	if claim.Email == "" || claim.Subject == "" {
		return nil, models.ErrInvalidCredentials
	}
	return claim, nil
}
