// Package middleware carries the request guards shared by the HTTP
// handlers: the staff credential guard, the parcel credential guard and a
// redis-backed rate limit for the anonymous endpoints.
package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/presentation/http/response"
	authservice "github.com/trustdrive/stagelink/internal/service/auth"
	parcelservice "github.com/trustdrive/stagelink/internal/service/parcel"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

// ParcelTokenHeader carries the customer's per-order credential.
const ParcelTokenHeader = "x-parcel-token"

const (
	staffContextKey  = "stagelink.staff"
	parcelContextKey = "stagelink.order"
)

// StaffGuard authenticates the staff bearer credential and, when roles are
// given, enforces that the resolved user holds one of them.
func StaffGuard(auth *authservice.Service, roles ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return response.New(c).WithError(errorbank.Unauthorized("missing bearer token")).Build()
			}
			user, err := auth.Resolve(c.Request().Context(), raw)
			if err != nil {
				return response.New(c).WithError(err).Build()
			}
			if len(roles) > 0 && !hasRole(user, roles) {
				return response.New(c).WithError(errorbank.Forbidden("insufficient role")).Build()
			}
			c.Set(staffContextKey, user)
			return next(c)
		}
	}
}

// StaffFromContext returns the user the staff guard resolved, or nil.
func StaffFromContext(c echo.Context) *entity.User {
	user, _ := c.Get(staffContextKey).(*entity.User)
	return user
}

// ParcelGuard authenticates the per-order parcel credential and loads the
// order it refers to. A retired order surfaces as gone, exactly as it does
// on lookup.
func ParcelGuard(parcels *parcelservice.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(ParcelTokenHeader))
			if raw == "" {
				return response.New(c).WithError(errorbank.Unauthorized("missing parcel token")).Build()
			}
			order, err := parcels.OrderForToken(c.Request().Context(), raw)
			if err != nil {
				return response.New(c).WithError(err).Build()
			}
			c.Set(parcelContextKey, order)
			return next(c)
		}
	}
}

// OrderFromContext returns the order the parcel guard resolved, or nil.
func OrderFromContext(c echo.Context) *entity.ParcelOrder {
	order, _ := c.Get(parcelContextKey).(*entity.ParcelOrder)
	return order
}

// RateLimit throttles a route per client IP using the shared limiter. With
// limiting disabled the limiter always allows, so the middleware is inert.
func RateLimit(limiter cache.Limiter, cfg config.RateLimit, route string, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("%s:%s", route, c.RealIP())
			allowed, err := limiter.Allow(c.Request().Context(), key, cfg.Attempts, cfg.Window)
			if err != nil {
				// Fail open: a limiter outage must not take the endpoint down.
				logger.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
				return next(c)
			}
			if !allowed {
				return response.New(c).WithError(errorbank.TooManyRequests("too many attempts, retry later")).Build()
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func hasRole(user *entity.User, roles []entity.Role) bool {
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}
