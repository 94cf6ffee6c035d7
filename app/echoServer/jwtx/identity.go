// app/echoServer/jwtx/identity.go
package jwtx

import (
	"errors"

	"schoollibrary/model"
	jwtutil "schoollibrary/util/jwt"

	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// IdentityFromToken reads the verified claims echo-jwt stored under "user".
func IdentityFromToken(c echo.Context) (model.Identity, error) {
	claims, ok := c.Get("user").(*jwtutil.Claims)
	if !ok || claims == nil {
		return model.Identity{}, errors.New("no jwt claims in context")
	}
	if claims.Subject == "" {
		return model.Identity{}, errors.New("sub missing in claims")
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Identity{}, errors.New("unknown role in claims")
	}
	return model.Identity{ID: claims.Subject, Role: role}, nil
}

func SetIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

func Identity(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}
