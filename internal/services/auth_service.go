package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"provdesk/internal/caching"
	"provdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService issues and validates the service's own tokens: HS256 JWT
// access tokens plus opaque refresh tokens stored hashed in the cache.
type AuthService interface {
	// GenerateTokens issues a token pair for a user or admin principal.
	// Admin tokens get a fixed 24h validity window regardless of the
	// configured access-token TTL.
	GenerateTokens(ctx context.Context, userID uuid.UUID, role string) (*models.TokenResponse, error)
	// RefreshToken exchanges a refresh token for a new pair. The presented
	// token is rotated: it is unusable after one successful exchange.
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	RevokeToken(ctx context.Context, token string, tokenType *string) error
	CleanupExpiredTokens(ctx context.Context) error
}

type authService struct {
	cacheSvc        caching.CacheService
	jwtSecret       []byte
	tokenTTL        time.Duration
	refreshTTL      time.Duration
	adminSessionTTL time.Duration
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new authentication service
func NewAuthService(cacheSvc caching.CacheService, jwtSecret string, tokenTTL, refreshTTL, adminSessionTTL time.Duration) AuthService {
	return &authService{
		cacheSvc:        cacheSvc,
		jwtSecret:       []byte(jwtSecret),
		tokenTTL:        tokenTTL,
		refreshTTL:      refreshTTL,
		adminSessionTTL: adminSessionTTL,
	}
}

func (s *authService) GenerateTokens(ctx context.Context, userID uuid.UUID, role string) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	ttl := s.tokenTTL
	if role == models.RoleAdmin {
		ttl = s.adminSessionTTL
	}

	claims := TokenClaims{
		UserID:  userID.String(),
		Role:    role,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "provdesk-auth",
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{"provdesk-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %v", err)
	}

	refreshToken := generateSecureToken()
	refreshTokenHash := hashToken(refreshToken)

	refreshTokenData := fmt.Sprintf("%s:%s:%d", userID.String(), role, now.Add(s.refreshTTL).Unix())
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	if err := s.cacheSvc.SetString(ctx, cacheKey, refreshTokenData, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    int(ttl.Seconds()),
		RefreshToken: refreshToken,
		Role:         role,
		UserID:       userID.String(),
		TokenID:      tokenID,
		IssuedAt:     now,
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	refreshTokenHash := hashToken(refreshToken)

	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	tokenData, err := s.cacheSvc.GetString(ctx, cacheKey)
	if err != nil || tokenData == "" {
		return nil, models.ErrSessionExpired
	}

	parts := strings.Split(tokenData, ":")
	if len(parts) != 3 {
		return nil, models.ErrSessionExpired
	}

	userIDStr, role, expiryStr := parts[0], parts[1], parts[2]
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		s.cacheSvc.Delete(ctx, cacheKey)
		return nil, models.ErrSessionExpired
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, models.ErrSessionExpired
	}

	// Rotate: the presented refresh token is single-use
	if err := s.cacheSvc.Delete(ctx, cacheKey); err != nil {
		log.Printf("Failed to rotate refresh token: %v", err)
	}

	return s.GenerateTokens(ctx, userID, role)
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	jwtToken, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}

	claims, ok := jwtToken.Claims.(*TokenClaims)
	if !ok || !jwtToken.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	blacklistKey := fmt.Sprintf("token_blacklist:%s", claims.TokenID)
	if revoked, err := s.cacheSvc.GetString(ctx, blacklistKey); err == nil && revoked != "" {
		return nil, fmt.Errorf("token revoked")
	}

	return claims, nil
}

func (s *authService) RevokeToken(ctx context.Context, token string, tokenType *string) error {
	if tokenType != nil && *tokenType == "refresh_token" {
		cacheKey := fmt.Sprintf("refresh_token:%s", hashToken(token))
		return s.cacheSvc.Delete(ctx, cacheKey)
	}

	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return fmt.Errorf("cannot revoke invalid token: %v", err)
	}

	blacklistKey := fmt.Sprintf("token_blacklist:%s", claims.TokenID)
	if err := s.cacheSvc.SetString(ctx, blacklistKey, "revoked", time.Until(claims.ExpiresAt.Time)); err != nil {
		log.Printf("Failed to blacklist token: %v", err)
	}

	return nil
}

// CleanupExpiredTokens is a no-op for entries with a cache TTL; it exists for
// the scheduler and logs so operators can see the job ran.
func (s *authService) CleanupExpiredTokens(ctx context.Context) error {
	log.Println("Cleaning up expired tokens")
	return nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return base64.URLEncoding.EncodeToString(bytes)
}

// hashToken creates a SHA-256 hash of the token for secure storage
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
