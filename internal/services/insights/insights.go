package insights

import (
	"ForecastDash/internal/domain/models"
)

// bandScale sizes the illustrative band: u = (1 - c) * p * bandScale.
const bandScale = 0.2

// AveragePrice is the mean predicted price to 2 decimals, or "0" when there are no points.
func AveragePrice(points []models.PredictionPoint) string {
	if len(points) == 0 {
		return "0"
	}
	return ToFixed(mean(points), 2)
}

func mean(points []models.PredictionPoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.PredictedPrice
	}
	return sum / float64(len(points))
}

// Uncertainty is the half-width of the band around p.
func Uncertainty(p float64, c models.ConfidenceLevel) float64 {
	return (1 - float64(c)) * p * bandScale
}

// PriceRange is the band [p-u, p+u] with both bounds formatted to 2 decimals.
func PriceRange(p float64, c models.ConfidenceLevel) models.PriceRange {
	u := Uncertainty(p, c)
	return models.PriceRange{
		Low:  ToFixed(p-u, 2),
		High: ToFixed(p+u, 2),
	}
}

// TrendOf is bullish only when there are at least two points and the last is strictly above the first.
func TrendOf(points []models.PredictionPoint) models.Trend {
	if len(points) >= 2 && points[len(points)-1].PredictedPrice > points[0].PredictedPrice {
		return models.TrendBullish
	}
	return models.TrendBearish
}

// SummaryBand is computed on the average after it has been rounded to 2 decimals,
// not on the raw mean; the two can differ in the last digit.
func SummaryBand(points []models.PredictionPoint, c models.ConfidenceLevel) models.PriceRange {
	var avg float64
	if len(points) > 0 {
		avg = Round2(mean(points))
	}
	return PriceRange(avg, c)
}

// BuildRows derives the detail table, one row per point with its own band.
func BuildRows(points []models.PredictionPoint, c models.ConfidenceLevel) []models.PredictionRow {
	rows := make([]models.PredictionRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, models.PredictionRow{
			Date:           p.Date,
			PredictedPrice: p.PredictedPrice,
			Price:          ToFixed(p.PredictedPrice, 2),
			Range:          PriceRange(p.PredictedPrice, c),
		})
	}
	return rows
}

// Summarize builds the headline cards; nil when there is nothing to summarize.
func Summarize(res *models.ForecastResult, c models.ConfidenceLevel) *models.Summary {
	if res == nil || len(res.Predictions) == 0 {
		return nil
	}
	trend := TrendOf(res.Predictions)
	return &models.Summary{
		CurrentPrice:      ToFixed(res.LastPrice, 2),
		AveragePrice:      AveragePrice(res.Predictions),
		ConfidencePercent: c.Percent(),
		Range:             SummaryBand(res.Predictions, c),
		Trend:             trend,
		TrendLabel:        trend.Label(),
	}
}
