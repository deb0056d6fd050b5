package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/finance"
)

type financeApi struct {
	svc      *finance.Service
	validate *validator.Validate
}

type BillResponse struct {
	Billed int               `json:"billed"`
	Items  []finance.FeeItem `json:"items"`
}

func registerFinanceAPI(g *echo.Group, deps ServerDeps) {
	api := financeApi{
		svc:      deps.FinanceSvc,
		validate: deps.Validate,
	}

	fg := g.Group("/finance", allow(core.RoleAdmin, core.RoleBursar))
	fg.GET("/stats", api.stats)
	fg.GET("/payments", api.queryPayments)
	fg.POST("/payments", api.recordPayment)
	fg.POST("/mpesa", api.requestMpesa)
	fg.POST("/invoices", api.billGrade)
	fg.GET("/invoices/:student_id", api.invoice)
}

// Handlers

func (api *financeApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing fee stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *financeApi) queryPayments(ctx echo.Context) error {
	filter := new(finance.PaymentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []finance.Payment{})
	}
	payments, err := api.svc.Payments(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *financeApi) recordPayment(ctx echo.Context) error {
	var data finance.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	receipt, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, receipt)
}

func (api *financeApi) requestMpesa(ctx echo.Context) error {
	var data finance.MpesaRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MpesaRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	receipt, err := api.svc.RequestMpesa(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "requesting M-Pesa payment")
	}
	return ctx.JSON(http.StatusCreated, receipt)
}

func (api *financeApi) billGrade(ctx echo.Context) error {
	var data finance.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.BillGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "billing grade")
	}
	return ctx.JSON(http.StatusCreated, BillResponse{Billed: n, Items: api.svc.FeeStructure()})
}

func (api *financeApi) invoice(ctx echo.Context) error {
	inv, err := api.svc.Invoice(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "deriving invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}
