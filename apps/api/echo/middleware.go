package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/officialmikal/elimusmart/core"
)

const (
	headerRole = "X-Role"
	ctxRoleKey = "role"
)

// roleMiddleware stores the role selected by the client in the context.
// Requests without a known role are refused.
func roleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		role := core.ParseRole(ctx.Request().Header.Get(headerRole))
		if role == core.RoleNone {
			return errHttpNoRole
		}
		ctx.Set(ctxRoleKey, role)
		return next(ctx)
	}
}

// allow lets through the given roles only.
func allow(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			role := contextRole(ctx)
			for _, r := range roles {
				if r == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func contextRole(ctx echo.Context) string {
	if role, ok := ctx.Get(ctxRoleKey).(string); ok {
		return role
	}
	return core.RoleNone
}
