package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// ctxActor extracts the caller injected by the Auth middleware and performs
// a fast-fail check before any service call: both the user id and a known
// role must be present.
func ctxActor(c echo.Context) (ports.Actor, error) {
	id, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if id == "" || !domain.ValidRole(role) {
		return ports.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return ports.Actor{ID: id, Role: role}, nil
}
