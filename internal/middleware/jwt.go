package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"provdesk/internal/caching"
	"provdesk/internal/common"
	"provdesk/internal/models"
	"provdesk/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTConfig builds the echo-jwt config for protected route groups. Claims
// are parsed into services.TokenClaims so downstream middleware can read
// the role and token ID without re-parsing.
func JWTConfig(jwtSecret string) echojwt.Config {
	return echojwt.Config{
		SigningKey: []byte(jwtSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(services.TokenClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		},
	}
}

// EnrichClaims runs after echo-jwt. It rejects blacklisted tokens and puts
// the principal's ID and role into the request context.
func EnrichClaims(cacheSvc caching.CacheService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}
			claims, ok := token.Claims.(*services.TokenClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
			}

			blacklistKey := fmt.Sprintf("token_blacklist:%s", claims.TokenID)
			if revoked, err := cacheSvc.GetString(c.Request().Context(), blacklistKey); err == nil && revoked != "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			ctx = context.WithValue(ctx, common.RoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// OptionalClaims is EnrichClaims for routes that serve both anonymous and
// authenticated calls. Requests without a parsed token pass through; a
// present token still fails closed on blacklist or malformed claims.
func OptionalClaims(cacheSvc caching.CacheService) echo.MiddlewareFunc {
	enrich := EnrichClaims(cacheSvc)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withClaims := enrich(next)
		return func(c echo.Context) error {
			if _, ok := c.Get("user").(*jwt.Token); !ok {
				return next(c)
			}
			return withClaims(c)
		}
	}
}

// AdminOnly rejects non-admin principals. It additionally re-checks the
// 24h wall-clock window on admin tokens so a stale client cannot ride an
// unexpired token past the session limit.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok || role != models.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}

			token, _ := c.Get("user").(*jwt.Token)
			if token != nil {
				if claims, ok := token.Claims.(*services.TokenClaims); ok && claims.IssuedAt != nil {
					if time.Since(claims.IssuedAt.Time) > 24*time.Hour {
						return echo.NewHTTPError(http.StatusUnauthorized, "admin session expired")
					}
				}
			}
			return next(c)
		}
	}
}
