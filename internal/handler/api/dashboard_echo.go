package api

import (
	"errors"
	"net/http"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/usecase"
	xhttp "ForecastDash/pkg/http"
	xlogger "ForecastDash/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

func init() {
	err := xhttp.RegisterValidation("confidence", func(fl validator.FieldLevel) bool {
		return models.ConfidenceLevel(fl.Field().Float()).Valid()
	}, "%s must be one of 0.8, 0.9, 0.95, 0.99")
	if err != nil {
		panic(err)
	}
}

// DashboardEchoHandler exposes the dashboard actions as JSON endpoints.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dashboard *usecase.Dashboard
	predictMW []echo.MiddlewareFunc
}

// NewDashboardEchoHandler creates the handler; predictMW wraps only the predict route (rate limiting).
func NewDashboardEchoHandler(logger *xlogger.Logger, d *usecase.Dashboard, predictMW ...echo.MiddlewareFunc) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, dashboard: d, predictMW: predictMW}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/state", h.State)
	g.GET("/stocks", h.Stocks)
	g.POST("/select", h.Select)
	g.POST("/confidence", h.Confidence)
	g.POST("/predict", h.Predict, h.predictMW...)
}

func (h *DashboardEchoHandler) State(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.dashboard.View())
}

func (h *DashboardEchoHandler) Stocks(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dashboard.Stocks())
}

func (h *DashboardEchoHandler) Select(c echo.Context) error {
	req := &models.SelectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := h.dashboard.Select(req.Symbol)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *DashboardEchoHandler) Confidence(c echo.Context) error {
	req := &models.ConfidenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := h.dashboard.SetConfidence(models.ConfidenceLevel(req.Level))
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, view)
}

// Predict blocks until the forecast completes. A service failure is a normal
// outcome: 200 with the view carrying the user-facing error.
func (h *DashboardEchoHandler) Predict(c echo.Context) error {
	view, err := h.dashboard.Predict(c.Request().Context())
	if err != nil && !errors.Is(err, usecase.ErrPredictionFailed) {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *DashboardEchoHandler) fail(c echo.Context, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("dashboard usecase error", xlogger.String("path", c.Path()), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, usecase.ErrBusy):
		return xhttp.ConflictError("a forecast is in progress").WithError(err)
	case errors.Is(err, usecase.ErrCatalogEmpty):
		return xhttp.ConflictError("stock list is not loaded yet").WithError(err)
	case errors.Is(err, usecase.ErrSuperseded):
		return xhttp.ConflictError("forecast was replaced by a newer request").WithError(err)
	case errors.Is(err, usecase.ErrNoSymbol):
		return xhttp.BadRequestError("symbol", "no stock selected").WithError(err)
	case errors.Is(err, usecase.ErrUnknownSymbol):
		return xhttp.BadRequestError("symbol", "unknown stock symbol").WithError(err)
	case errors.Is(err, usecase.ErrInvalidConfidence):
		return xhttp.BadRequestError("level", "confidence must be one of 0.8, 0.9, 0.95, 0.99").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
