package api

import (
	"errors"
	"net/http"

	"TradeDesk/internal/schema"
	"TradeDesk/internal/service/backend"
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// respondError maps usecase failures onto the response envelope.
func respondError(c echo.Context, log *applogger.Logger, err error) error {
	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]xhttp.ValidationError, 0, len(verrs))
		for _, e := range verrs {
			out = append(out, xhttp.ValidationError{Code: "ERR_INVALID", Field: e.Field, Message: e.Message})
		}
		return xhttp.BadRequestResponse(c, out)
	}

	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error("request failed",
			applogger.String("path", c.Path()),
			applogger.Int("status", appErr.Status),
			applogger.Error(err),
		)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var be *backend.Error
	switch {
	case errors.Is(err, usecase.ErrNoSession):
		return xhttp.UnauthorizedError("Authentication required").WithError(err)
	case errors.Is(err, usecase.ErrStaleRecord),
		errors.Is(err, usecase.ErrNotEditing),
		errors.Is(err, usecase.ErrAlreadyEditing):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrTickerNotFound), errors.Is(err, schema.ErrUnknownKind):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrKindMismatch),
		errors.Is(err, usecase.ErrEmptyTokenLink),
		errors.Is(err, usecase.ErrInvalidExpiration):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.As(err, &be):
		if be.Status == http.StatusUnauthorized {
			return xhttp.UnauthorizedError(be.Message).WithError(err)
		}
		return xhttp.BadGatewayError(be.Message).WithError(err)
	case errors.Is(err, schema.ErrFieldCount), errors.Is(err, schema.ErrSchemaVersion):
		return xhttp.BadGatewayError("Backend returned tickers in an unexpected layout").WithError(err)
	}
	return xhttp.InternalError("Something went wrong").WithError(err)
}
