package echoServer

import (
	"log/slog"
	"net/http"

	"schoollibrary/app/echoServer/validation"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// New builds the echo instance with middleware, error handling, health and docs routes.
func New(log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	v := validation.New()
	e.Validator = v
	e.JSONSerializer = JSONSerializer{}
	e.HTTPErrorHandler = NewHTTPErrorHandler(log, v)
	RegisterMiddlewares(e, log)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	return e
}
