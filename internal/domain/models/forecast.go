package models

import (
	"fmt"
	"strconv"
)

// ForecastHorizon is the number of days requested from the prediction service.
const ForecastHorizon = 7

// Symbol is a tradable ticker in the catalog.
type Symbol struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// PredictionPoint is one forecast day, as produced by the prediction service.
type PredictionPoint struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predictedPrice"`
}

// ForecastResult is the prediction service answer for one symbol.
type ForecastResult struct {
	Symbol      string            `json:"symbol,omitempty"`
	LastPrice   float64           `json:"lastPrice"`
	Predictions []PredictionPoint `json:"predictions"`
}

// Clone copies the predictions so snapshots never share the backing array.
func (r *ForecastResult) Clone() *ForecastResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Predictions = append([]PredictionPoint(nil), r.Predictions...)
	return &out
}

// ConfidenceLevel is the fraction used to size the display band.
type ConfidenceLevel float64

const (
	Confidence80 ConfidenceLevel = 0.80
	Confidence90 ConfidenceLevel = 0.90
	Confidence95 ConfidenceLevel = 0.95
	Confidence99 ConfidenceLevel = 0.99

	DefaultConfidence = Confidence90
)

// ConfidenceLevels lists the selectable levels, highest first.
func ConfidenceLevels() []ConfidenceLevel {
	return []ConfidenceLevel{Confidence99, Confidence95, Confidence90, Confidence80}
}

// Valid reports whether c is one of the selectable levels.
func (c ConfidenceLevel) Valid() bool {
	for _, l := range ConfidenceLevels() {
		if c == l {
			return true
		}
	}
	return false
}

// Percent renders the level as a whole percentage, e.g. "95".
func (c ConfidenceLevel) Percent() string {
	return strconv.FormatFloat(float64(c)*100, 'f', -1, 64)
}

// ParseConfidence accepts "0.95" or "95".
func ParseConfidence(s string) (ConfidenceLevel, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse confidence %q: %w", s, err)
	}
	if v > 1 {
		v /= 100
	}
	c := ConfidenceLevel(v)
	if !c.Valid() {
		return 0, fmt.Errorf("confidence %q is not one of 80, 90, 95, 99", s)
	}
	return c, nil
}

// Trend is the overall direction of a forecast.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
)

// Label is the display text with its arrow.
func (t Trend) Label() string {
	if t == TrendBullish {
		return "Bullish ↑"
	}
	return "Bearish ↓"
}

// FallbackCatalog is used when the prediction service cannot list stocks.
func FallbackCatalog() []Symbol {
	return []Symbol{
		{Symbol: "AAPL", Name: "Apple Inc."},
		{Symbol: "MSFT", Name: "Microsoft Corporation"},
		{Symbol: "GOOGL", Name: "Alphabet Inc."},
		{Symbol: "AMZN", Name: "Amazon.com Inc."},
		{Symbol: "BABA", Name: "Alibaba Group Holding Ltd."},
		{Symbol: "TCEHY", Name: "Tencent Holdings Ltd."},
		{Symbol: "PDD", Name: "PDD Holdings Inc."},
		{Symbol: "BIDU", Name: "Baidu Inc."},
	}
}
