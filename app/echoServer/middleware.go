// app/echoServer/middleware.go
package echoServer

import (
	"log/slog"
	"net/http"
	"time"

	"schoollibrary/app/echoServer/jwtx"
	jwtutil "schoollibrary/util/jwt"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func RegisterMiddlewares(e *echo.Echo, log *slog.Logger) {

	e.Use(middleware.Recover())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(Slog(log))
}

func Slog(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// resolve the status before logging it
				c.Error(err)
			}
			lat := time.Since(start).Milliseconds()

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			log.Info("http",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", lat,
				"req_id", rid,
				"ip", c.RealIP(),
				"ua", c.Request().UserAgent(),
			)
			return nil
		}
	}
}

// Authenticate verifies the bearer token and stores the caller identity.
func Authenticate(secret string, log *slog.Logger) []echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return jwtutil.ParseAuth(auth, secret)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Warn("[AUTH] rejected token",
				"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"ip", c.RealIP(),
				"err", err,
			)
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
		},
	})
	identify := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := jwtx.IdentityFromToken(c)
			if err != nil {
				log.Warn("[AUTH] rejected claims",
					"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
					"ip", c.RealIP(),
					"err", err,
				)
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			jwtx.SetIdentity(c, id)
			return next(c)
		}
	}
	return []echo.MiddlewareFunc{verify, identify}
}

// RequireStaff lets staff, teachers and admins through.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := jwtx.Identity(c)
			if !ok || !id.Role.IsStaff() {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
