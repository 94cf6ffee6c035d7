package echoServer

import (
	"errors"
	"log/slog"
	"net/http"

	"schoollibrary/app/echoServer/validation"
	"schoollibrary/util/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var statusByCode = map[apperr.Code]int{
	apperr.Validation:   http.StatusBadRequest,
	apperr.NotFound:     http.StatusNotFound,
	apperr.Conflict:     http.StatusBadRequest,
	apperr.DuplicateKey: http.StatusBadRequest,
	apperr.Forbidden:    http.StatusForbidden,
	apperr.Internal:     http.StatusInternalServerError,
}

// NewHTTPErrorHandler renders every failure as {"message", "error"}.
func NewHTTPErrorHandler(log *slog.Logger, v *validation.Validator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := echo.Map{"message": "internal error", "error": string(apperr.Internal)}

		var (
			httpErr *echo.HTTPError
			vErrs   validator.ValidationErrors
		)
		switch {
		case errors.As(err, &vErrs):
			code = http.StatusBadRequest
			body = echo.Map{
				"message": "validation error",
				"error":   string(apperr.Validation),
				"fields":  v.Fields(vErrs),
			}
		case !apperr.Is(err, apperr.Internal):
			ac := apperr.CodeOf(err)
			code = statusByCode[ac]
			body = echo.Map{"message": apperr.MessageOf(err), "error": string(ac)}
		case errors.As(err, &httpErr):
			code = httpErr.Code
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(code)
			}
			body = echo.Map{"message": msg, "error": http.StatusText(code)}
		}

		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		if code >= http.StatusInternalServerError {
			log.Error("request failed", "req_id", rid, "path", c.Path(), "err", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Error("writing error response", "req_id", rid, "err", err)
		}
	}
}
