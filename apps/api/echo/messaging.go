package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/messaging"
)

type messagingApi struct {
	svc      *messaging.Service
	validate *validator.Validate
}

func registerMessagingAPI(g *echo.Group, deps ServerDeps) {
	api := messagingApi{
		svc:      deps.MessagingSvc,
		validate: deps.Validate,
	}

	mg := g.Group("/messaging", allow(core.RoleAdmin, core.RoleBursar))
	mg.GET("/templates", api.queryTemplates)
	mg.GET("/broadcasts", api.queryBroadcasts)
	mg.POST("/broadcasts", api.broadcast)
}

// Handlers

func (api *messagingApi) queryTemplates(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, messaging.Templates)
}

func (api *messagingApi) queryBroadcasts(ctx echo.Context) error {
	broadcasts, err := api.svc.Broadcasts(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying broadcasts")
	}
	return ctx.JSON(http.StatusOK, broadcasts)
}

func (api *messagingApi) broadcast(ctx echo.Context) error {
	var data messaging.NewBroadcast
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBroadcast")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.Broadcast(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "broadcasting")
	}
	return ctx.JSON(http.StatusCreated, b)
}
