package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/usecase"
	xlogger "ForecastDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"percent": func(c models.ConfidenceLevel) string { return c.Percent() },
	"isSelected": func(sel *models.Symbol, s models.Symbol) bool {
		return sel != nil && sel.Symbol == s.Symbol
	},
}).ParseFS(templateFS, "templates/dashboard.html"))

type pageData struct {
	Title string
	View  models.DashboardView
	Chart *Chart
}

// PageHandler renders the dashboard as a single HTML page.
type PageHandler struct {
	logger    *xlogger.Logger
	dashboard *usecase.Dashboard
	title     string
}

func NewPageHandler(logger *xlogger.Logger, d *usecase.Dashboard, title string) *PageHandler {
	if title == "" {
		title = "Stock Price Forecast"
	}
	return &PageHandler{logger: logger, dashboard: d, title: title}
}

func (h *PageHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
}

func (h *PageHandler) Index(c echo.Context) error {
	view := h.dashboard.View()
	data := pageData{Title: h.title, View: view}
	if view.Result != nil {
		data.Chart = buildChart(view.Result.Predictions)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		h.logger.Error("render dashboard", xlogger.Error(err))
		return c.String(http.StatusInternalServerError, "render failed")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
