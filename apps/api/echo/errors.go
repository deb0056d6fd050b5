package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
)

var (
	errHttpNoRole    = echo.NewHTTPError(http.StatusForbidden, "no role assigned")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch cause {
		case student.ErrNotFound, subject.ErrNotFound:
			cause = echo.NewHTTPError(http.StatusNotFound, cause.Error())
		case finance.ErrPaymentFailed:
			cause = echo.NewHTTPError(http.StatusBadGateway, err.Error())
		case context.DeadlineExceeded:
			cause = echo.NewHTTPError(http.StatusGatewayTimeout, "the request timed out")
		case bulk.ErrEmptyFile, bulk.ErrUnknownFormat:
			cause = core.NewValidationError(nil, core.FieldError{Field: "file", Error: cause.Error()})
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			actor := core.Actor{
				Role:      contextRole(ctx),
				RequestID: ctx.Response().Header().Get(echo.HeaderXRequestID),
			}
			logger.Error(msg, errors.Wrap(err, msg), actor)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
