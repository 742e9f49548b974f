package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OwnerID resolves the authenticated user's id from the request as a UUID.
// Returns a 401 HTTPError when no valid owner is present.
func OwnerID(c echo.Context) (uuid.UUID, error) {
	uid := UserIDFromContext(c.Request().Context())
	if uid == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing owner context")
	}
	id, err := uuid.Parse(uid)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid owner id")
	}
	return id, nil
}
