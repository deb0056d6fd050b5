package echoapi

import (
	"bytes"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
)

type academicsApi struct {
	svc        *academics.Service
	subjectSvc *subject.Service
	validate   *validator.Validate
}

func registerAcademicsAPI(g *echo.Group, deps ServerDeps) {
	api := academicsApi{
		svc:        deps.AcademicsSvc,
		subjectSvc: deps.SubjectSvc,
		validate:   deps.Validate,
	}
	teachers := allow(core.RoleAdmin, core.RoleClassTeacher, core.RoleSubjectTeacher)

	sg := g.Group("/subjects")
	sg.GET("", api.querySubjects, teachers)
	sg.POST("", api.createSubject, allow(core.RoleAdmin))
	sg.DELETE("/:id", api.destroySubject, allow(core.RoleAdmin))

	mg := g.Group("/marks", teachers)
	mg.GET("", api.queryMarks)
	mg.PUT("", api.recordMarks)

	rg := g.Group("/reports", allow(core.RoleAdmin, core.RoleClassTeacher))
	rg.GET("/merit-list", api.meritList)
	rg.GET("/students/:id", api.reportCard)

	g.GET("/analytics/subjects", api.subjectPerformance, allow(core.RoleAdmin))
}

// Handlers

func (api *academicsApi) querySubjects(ctx echo.Context) error {
	filter := new(subject.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []subject.Subject{})
	}
	subjects, err := api.subjectSvc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicsApi) createSubject(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate, api.subjectSvc); err != nil {
		return err
	}

	s, err := api.subjectSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *academicsApi) destroySubject(ctx echo.Context) error {
	if err := api.subjectSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) queryMarks(ctx echo.Context) error {
	q := new(academics.MarkQuery)
	if err := ctx.Bind(q); err != nil {
		return ctx.JSON(http.StatusOK, []academics.Mark{})
	}
	marks, err := api.svc.Marks(ctx.Request().Context(), *q)
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *academicsApi) recordMarks(ctx echo.Context) error {
	var data academics.MarkSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkSheet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RecordMarks(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "recording marks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) meritList(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	entries, err := api.svc.MeritList(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "building merit list")
	}

	if ctx.QueryParam(formatParam) == "" {
		return ctx.JSON(http.StatusOK, entries)
	}
	format, err := queryFormat(ctx, bulk.FormatCSV)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := bulk.ExportMeritList(&buf, format, entries); err != nil {
		return errors.Wrap(err, "exporting merit list")
	}
	return attachment(ctx, "merit-list", format, buf.Bytes())
}

func (api *academicsApi) reportCard(ctx echo.Context) error {
	card, err := api.svc.ReportCard(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, card)
}

func (api *academicsApi) subjectPerformance(ctx echo.Context) error {
	perf, err := api.svc.SubjectPerformance(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing subject performance")
	}
	return ctx.JSON(http.StatusOK, perf)
}
