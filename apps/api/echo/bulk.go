package echoapi

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/bulk"
)

type bulkApi struct {
	svc *bulk.Service
}

func registerBulkAPI(g *echo.Group, deps ServerDeps) {
	api := bulkApi{svc: deps.BulkSvc}
	admin := allow(core.RoleAdmin)
	finance := allow(core.RoleAdmin, core.RoleBursar)

	ig := g.Group("/import", middleware.BodyLimit(uploadLimit))
	ig.POST("/students", api.importer(api.svc.ImportStudents), admin)
	ig.POST("/payments", api.importer(api.svc.ImportPayments), finance)
	ig.POST("/marks", api.importer(api.svc.ImportMarks), admin)

	eg := g.Group("/export")
	eg.GET("/students", api.exporter("students", api.svc.ExportStudents), admin)
	eg.GET("/payments", api.exporter("payments", api.svc.ExportPayments), finance)
}

type (
	importFunc func(ctx context.Context, r io.Reader, format string) (bulk.ImportResult, error)
	exportFunc func(ctx context.Context, w io.Writer, format string) error
)

// Handlers

func (api *bulkApi) importer(fn importFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r, format, err := upload(ctx)
		if err != nil {
			return err
		}
		res, err := fn(ctx.Request().Context(), r, format)
		if err != nil {
			return errors.Wrap(err, "importing "+format)
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func (api *bulkApi) exporter(name string, fn exportFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		format, err := queryFormat(ctx, bulk.FormatCSV)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := fn(ctx.Request().Context(), &buf, format); err != nil {
			return errors.Wrap(err, "exporting "+name)
		}
		return attachment(ctx, name, format, buf.Bytes())
	}
}
