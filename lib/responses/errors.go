package responses

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"github.com/escrowhub/escrowhub.go/ledger"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var UnauthorizedError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "caller is not allowed to perform this action",
	HttpStatusCode: 403,
}

var InvoiceNotFoundError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "invoice not found",
	HttpStatusCode: 404,
}

var InvalidStateError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "invoice is not in a state that allows this action",
	HttpStatusCode: 409,
}

var TransferFailedError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "value transfer failed. no state was changed, please try again later",
	HttpStatusCode: 502,
}

var OverflowError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "amount or counter out of range",
	HttpStatusCode: 400,
}

// FromLedgerError maps a ledger error kind to its wire response.
// Unrecognized errors fall through to GeneralServerError.
func FromLedgerError(err error) ErrorResponse {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return InvoiceNotFoundError
	case errors.Is(err, ledger.ErrInvalidArgument):
		return BadArgumentsError
	case errors.Is(err, ledger.ErrUnauthorized):
		return UnauthorizedError
	case errors.Is(err, ledger.ErrInvalidState):
		return InvalidStateError
	case errors.Is(err, ledger.ErrTransferFailed):
		return TransferFailedError
	case errors.Is(err, ledger.ErrOverflow):
		return OverflowError
	default:
		return GeneralServerError
	}
}

// WriteLedgerError renders the JSON body for a failed ledger operation.
func WriteLedgerError(c echo.Context, err error) error {
	resp := FromLedgerError(err)
	return c.JSON(resp.HttpStatusCode, &resp)
}

func isErrAllowedForSentry(err error) bool {
	httpError, ok := err.(*echo.HTTPError)
	if !ok {
		return true
	}
	message, ok := httpError.Message.(echo.Map)
	if !ok {
		return true
	}
	// auth failures are expected noise, skip them
	return message["code"] != BadAuthError.Code
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil && isErrAllowedForSentry(err) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("Caller", c.Get("Caller"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}
