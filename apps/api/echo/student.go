package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
)

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	svc        *student.Service
	financeSvc *finance.Service
	validate   *validator.Validate
}

func registerStudentAPI(g *echo.Group, deps ServerDeps) {
	api := studentApi{
		svc:        deps.StudentSvc,
		financeSvc: deps.FinanceSvc,
		validate:   deps.Validate,
	}

	sg := g.Group("/students", allow(core.RoleAdmin, core.RoleClassTeacher, core.RoleBursar))
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, allow(core.RoleAdmin))
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	if err := api.financeSvc.OpeningBalance(ctx.Request().Context(), s.ID, data.OpeningBalance); err != nil {
		return errors.Wrap(err, "charging opening balance")
	}
	s.FeeBalance = data.OpeningBalance

	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	if ordering.Orderings == nil {
		ordering.Orderings = []core.Ordering{{Field: "adm_no", Ascending: true}}
	}

	students, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students, err = api.financeSvc.AttachBalances(ctx.Request().Context(), students); err != nil {
		return errors.Wrap(err, "attaching balances")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(s, api.validate, api.svc); err != nil {
		return err
	}

	updated, err := api.svc.Update(ctx.Request().Context(), s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	updated.FeeBalance = s.FeeBalance
	return ctx.JSON(http.StatusOK, updated)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data student.DeleteStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteStudent")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), s.ID, data.ConfirmAdmNo); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// objectMiddleware loads the student of the `:id` path param, with their balance.
func (api *studentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding student by ID")
		}
		if s.FeeBalance, err = api.financeSvc.Balance(ctx.Request().Context(), s.ID); err != nil {
			return errors.Wrap(err, "computing balance")
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}
