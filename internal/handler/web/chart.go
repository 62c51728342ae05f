package web

import (
	"fmt"
	"math"
	"strings"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/services/insights"
)

const (
	chartWidth  = 720
	chartHeight = 300
	padLeft     = 64
	padRight    = 24
	padTop      = 16
	padBottom   = 40
	yTicks      = 5
)

type chartPoint struct {
	X, Y  float64
	Date  string
	Price string
}

type chartTick struct {
	Pos   float64
	Label string
}

// Chart is a precomputed SVG line chart of predicted price by date.
type Chart struct {
	Width, Height float64
	Left, Right   float64
	Top, Bottom   float64
	Points        []chartPoint
	Polyline      string
	YTicks        []chartTick
}

func buildChart(points []models.PredictionPoint) *Chart {
	if len(points) == 0 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p.PredictedPrice)
		hi = math.Max(hi, p.PredictedPrice)
	}
	// pad the domain so a flat series still has height
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi)*0.01, 1)
	}
	lo -= span * 0.1
	hi += span * 0.1

	c := &Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Left:   padLeft,
		Right:  chartWidth - padRight,
		Top:    padTop,
		Bottom: chartHeight - padBottom,
	}
	plotW := c.Right - c.Left
	plotH := c.Bottom - c.Top

	step := 0.0
	if len(points) > 1 {
		step = plotW / float64(len(points)-1)
	}
	coords := make([]string, 0, len(points))
	for i, p := range points {
		x := c.Left + step*float64(i)
		if len(points) == 1 {
			x = c.Left + plotW/2
		}
		y := c.Bottom - (p.PredictedPrice-lo)/(hi-lo)*plotH
		c.Points = append(c.Points, chartPoint{X: x, Y: y, Date: p.Date, Price: insights.ToFixed(p.PredictedPrice, 2)})
		coords = append(coords, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	c.Polyline = strings.Join(coords, " ")

	for i := 0; i <= yTicks; i++ {
		v := lo + (hi-lo)*float64(i)/yTicks
		c.YTicks = append(c.YTicks, chartTick{
			Pos:   c.Bottom - float64(i)/yTicks*plotH,
			Label: insights.ToFixed(v, 2),
		})
	}
	return c
}
