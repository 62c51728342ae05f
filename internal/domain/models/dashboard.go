package models

// PriceRange is a display band with both bounds already formatted to 2 decimals.
type PriceRange struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// PredictionRow is one line of the detail table.
type PredictionRow struct {
	Date           string     `json:"date"`
	PredictedPrice float64    `json:"predictedPrice"`
	Price          string     `json:"price"`
	Range          PriceRange `json:"range"`
}

// Summary holds the headline cards shown above the chart.
type Summary struct {
	CurrentPrice      string     `json:"currentPrice"`
	AveragePrice      string     `json:"averagePrice"`
	ConfidencePercent string     `json:"confidencePercent"`
	Range             PriceRange `json:"range"`
	Trend             Trend      `json:"trend"`
	TrendLabel        string     `json:"trendLabel"`
}

// DashboardView is an immutable snapshot of dashboard state plus everything derived from it.
type DashboardView struct {
	Stocks     []Symbol          `json:"stocks"`
	Selected   *Symbol           `json:"selected"`
	Confidence ConfidenceLevel   `json:"confidence"`
	Levels     []ConfidenceLevel `json:"levels"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	Result     *ForecastResult   `json:"result,omitempty"`
	Summary    *Summary          `json:"summary,omitempty"`
	Rows       []PredictionRow   `json:"rows,omitempty"`
	Disclaimer []string          `json:"disclaimer"`
}

// HasResult reports whether there is a forecast to render.
func (v DashboardView) HasResult() bool {
	return v.Result != nil && len(v.Result.Predictions) > 0
}

// CanPredict mirrors the enabled state of the predict button.
func (v DashboardView) CanPredict() bool {
	return !v.Loading && v.Selected != nil
}

// CanSelect mirrors the enabled state of the symbol selector.
func (v DashboardView) CanSelect() bool {
	return !v.Loading && len(v.Stocks) > 0
}

// Transition names a state change of the dashboard.
type Transition string

const (
	TransitionCatalogLoaded     Transition = "catalog_loaded"
	TransitionSymbolChanged     Transition = "symbol_changed"
	TransitionConfidenceChanged Transition = "confidence_changed"
	TransitionPredictStarted    Transition = "predict_started"
	TransitionPredictSucceeded  Transition = "predict_succeeded"
	TransitionPredictFailed     Transition = "predict_failed"
	TransitionPredictDiscarded  Transition = "predict_discarded"
)

// DashboardEvent is emitted on every transition, carrying the resulting view.
type DashboardEvent struct {
	Type      Transition    `json:"type"`
	RequestID uint64        `json:"requestId,omitempty"`
	Symbol    string        `json:"symbol,omitempty"`
	View      DashboardView `json:"view"`
}

// Disclaimer is shown under every forecast.
func Disclaimer() []string {
	return []string{
		"Predictions are for reference only and do not constitute investment advice",
		"The model predicts based on historical data and cannot account for unexpected events",
		"Actual investment decisions should consider multiple factors",
		"This system uses a GRU neural network model, trained over 50 epochs",
		"The model uses past price sequences to predict future price trends",
	}
}
