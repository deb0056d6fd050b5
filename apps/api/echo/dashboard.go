package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/messaging"
	"github.com/officialmikal/elimusmart/core/student"
)

const topStudents = 5

type dashboardApi struct {
	studentSvc   *student.Service
	academicsSvc *academics.Service
	financeSvc   *finance.Service
	messagingSvc *messaging.Service
}

type Dashboard struct {
	Students        int                    `json:"students"`
	Average         academics.Stats        `json:"average"`
	FeesCollected   decimal.Decimal        `json:"fees_collected"`
	FeesOutstanding decimal.Decimal        `json:"fees_outstanding"`
	Efficiency      float64                `json:"efficiency"`
	MessagesSent    int                    `json:"messages_sent"`
	TopStudents     []academics.MeritEntry `json:"top_students"`
}

func registerDashboardAPI(g *echo.Group, deps ServerDeps) {
	api := dashboardApi{
		studentSvc:   deps.StudentSvc,
		academicsSvc: deps.AcademicsSvc,
		financeSvc:   deps.FinanceSvc,
		messagingSvc: deps.MessagingSvc,
	}
	g.GET("/dashboard", api.summary, allow(core.RoleAdmin, core.RoleClassTeacher, core.RoleSubjectTeacher, core.RoleBursar))
}

func (api *dashboardApi) summary(ctx echo.Context) error {
	c := ctx.Request().Context()

	merit, err := api.academicsSvc.MeritList(c, student.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "building merit list")
	}
	avg, err := api.academicsSvc.SchoolMean(c)
	if err != nil {
		return errors.Wrap(err, "computing school mean")
	}
	stats, err := api.financeSvc.Stats(c)
	if err != nil {
		return errors.Wrap(err, "computing fee stats")
	}
	sent, err := api.messagingSvc.MessagesSent(c)
	if err != nil {
		return errors.Wrap(err, "counting messages")
	}

	top := merit
	if len(top) > topStudents {
		top = top[:topStudents]
	}
	return ctx.JSON(http.StatusOK, Dashboard{
		Students:        len(merit),
		Average:         avg,
		FeesCollected:   stats.TotalCollected,
		FeesOutstanding: stats.TotalOwed,
		Efficiency:      stats.Efficiency,
		MessagesSent:    sent,
		TopStudents:     top,
	})
}
