package main

import (
	"bytes"
	"strings"
	"testing"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/services/insights"
)

func TestRenderForecast(t *testing.T) {
	res := &models.ForecastResult{
		Symbol:    "AAPL",
		LastPrice: 300,
		Predictions: []models.PredictionPoint{
			{Date: "2024-06-03", PredictedPrice: 305},
			{Date: "2024-06-04", PredictedPrice: 310},
			{Date: "2024-06-05", PredictedPrice: 298},
		},
	}
	c := models.ConfidenceLevel(0.95)
	v := models.DashboardView{
		Selected:   &models.Symbol{Symbol: "AAPL", Name: "Apple Inc."},
		Confidence: c,
		Result:     res,
		Summary:    insights.Summarize(res, c),
		Rows:       insights.BuildRows(res.Predictions, c),
		Disclaimer: models.Disclaimer(),
	}

	var buf bytes.Buffer
	if err := render(&buf, v); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Apple Inc. (AAPL)",
		"$300.00",
		"$304.33",
		"95% Confidence Interval",
		"Bearish ↓",
		"2024-06-03  $305.00",
		"$301.95 - $308.05",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderError(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, models.DashboardView{Error: "Prediction failed, please try again later"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Prediction failed, please try again later" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
