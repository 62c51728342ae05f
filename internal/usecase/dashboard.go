package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ForecastDash/internal/domain/models"
	drepo "ForecastDash/internal/domain/repository"
	"ForecastDash/internal/services/insights"
	"ForecastDash/pkg/logger"
)

// PredictionFailedMessage is the only failure text users ever see.
const PredictionFailedMessage = "Prediction failed, please try again later"

var (
	ErrBusy              = errors.New("dashboard: a forecast is already in flight")
	ErrNoSymbol          = errors.New("dashboard: no symbol selected")
	ErrCatalogEmpty      = errors.New("dashboard: catalog not loaded")
	ErrUnknownSymbol     = errors.New("dashboard: symbol not in catalog")
	ErrInvalidConfidence = errors.New("dashboard: unsupported confidence level")
	ErrPredictionFailed  = errors.New("dashboard: prediction failed")
	ErrSuperseded        = errors.New("dashboard: result superseded by a newer request")
)

// Listener receives every transition. It runs on the mutating goroutine and
// must not call back into Dashboard mutators.
type Listener func(models.DashboardEvent)

// Dashboard owns the one shared dashboard state of the process.
type Dashboard struct {
	svc     drepo.PredictionService
	catalog *CatalogLoader
	metrics drepo.Metrics
	log     *logger.Logger
	timeout time.Duration

	// transitions hold emitMu across state change and notification so
	// listeners observe them in order; mu guards the fields below.
	emitMu     sync.Mutex
	mu         sync.Mutex
	stocks     []models.Symbol
	selected   *models.Symbol
	confidence models.ConfidenceLevel
	loading    bool
	errMsg     string
	result     *models.ForecastResult
	latestReq  uint64
	activeReq  uint64

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int
}

// NewDashboard creates a dashboard with an empty catalog. timeout bounds each
// forecast call regardless of the caller's context.
func NewDashboard(
	svc drepo.PredictionService,
	catalog *CatalogLoader,
	metrics drepo.Metrics,
	log *logger.Logger,
	timeout time.Duration,
) *Dashboard {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dashboard{
		svc:        svc,
		catalog:    catalog,
		metrics:    metrics,
		log:        log,
		timeout:    timeout,
		confidence: models.DefaultConfidence,
		subs:       make(map[int]Listener),
	}
}

// Subscribe registers fn for transitions and returns its cancel func.
func (d *Dashboard) Subscribe(fn Listener) func() {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

func (d *Dashboard) notify(ev models.DashboardEvent) {
	d.subMu.Lock()
	ls := make([]Listener, 0, len(d.subs))
	for _, fn := range d.subs {
		ls = append(ls, fn)
	}
	d.subMu.Unlock()

	for _, fn := range ls {
		fn(ev)
	}
}

// LoadCatalog fetches the catalog and adopts it. Failures fall back silently.
func (d *Dashboard) LoadCatalog(ctx context.Context) string {
	stocks, source := d.catalog.Load(ctx)
	d.SetCatalog(stocks)
	return source
}

// SetCatalog replaces the catalog wholesale and selects its first entry. A
// forecast still in flight is invalidated: its result will not be applied.
func (d *Dashboard) SetCatalog(stocks []models.Symbol) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	d.stocks = append([]models.Symbol(nil), stocks...)
	d.selected = nil
	if len(d.stocks) > 0 {
		first := d.stocks[0]
		d.selected = &first
	}
	if d.loading {
		d.latestReq++
	}
	view := d.viewLocked()
	d.mu.Unlock()

	d.notify(models.DashboardEvent{Type: models.TransitionCatalogLoaded, View: view})
}

// Select makes symbol current. It must be an exact catalog match.
func (d *Dashboard) Select(symbol string) (models.DashboardView, error) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.loading {
		view := d.viewLocked()
		d.mu.Unlock()
		return view, ErrBusy
	}
	if len(d.stocks) == 0 {
		view := d.viewLocked()
		d.mu.Unlock()
		return view, ErrCatalogEmpty
	}
	var found *models.Symbol
	for i := range d.stocks {
		if d.stocks[i].Symbol == symbol {
			s := d.stocks[i]
			found = &s
			break
		}
	}
	if found == nil {
		view := d.viewLocked()
		d.mu.Unlock()
		return view, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	d.selected = found
	view := d.viewLocked()
	d.mu.Unlock()

	d.notify(models.DashboardEvent{Type: models.TransitionSymbolChanged, Symbol: symbol, View: view})
	return view, nil
}

// SetConfidence changes the band level; the view is re-derived, nothing is refetched.
func (d *Dashboard) SetConfidence(c models.ConfidenceLevel) (models.DashboardView, error) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.loading {
		view := d.viewLocked()
		d.mu.Unlock()
		return view, ErrBusy
	}
	if !c.Valid() {
		view := d.viewLocked()
		d.mu.Unlock()
		return view, fmt.Errorf("%w: %v", ErrInvalidConfidence, float64(c))
	}
	d.confidence = c
	view := d.viewLocked()
	d.mu.Unlock()

	d.notify(models.DashboardEvent{Type: models.TransitionConfidenceChanged, View: view})
	return view, nil
}

// Predict requests a forecast for the current symbol. The call is detached from
// ctx cancellation: once started it runs to completion or the client timeout.
// On service failure the returned view carries the user message and the error
// wraps ErrPredictionFailed; the previous result stays in place.
func (d *Dashboard) Predict(ctx context.Context) (models.DashboardView, error) {
	id, symbol, err := d.beginPredict()
	if err != nil {
		return d.View(), err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	res, callErr := d.svc.Predict(callCtx, symbol, models.ForecastHorizon)
	cancel()

	return d.finishPredict(id, symbol, res, callErr, time.Since(start))
}

func (d *Dashboard) beginPredict() (uint64, string, error) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.loading {
		d.mu.Unlock()
		return 0, "", ErrBusy
	}
	if d.selected == nil {
		d.mu.Unlock()
		return 0, "", ErrNoSymbol
	}
	d.latestReq++
	id := d.latestReq
	d.activeReq = id
	d.loading = true
	d.errMsg = ""
	symbol := d.selected.Symbol
	view := d.viewLocked()
	d.mu.Unlock()

	d.notify(models.DashboardEvent{Type: models.TransitionPredictStarted, RequestID: id, Symbol: symbol, View: view})
	return id, symbol, nil
}

func (d *Dashboard) finishPredict(id uint64, symbol string, res *models.ForecastResult, callErr error, took time.Duration) (models.DashboardView, error) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.activeReq == id {
		d.loading = false
		d.activeReq = 0
	}

	if id != d.latestReq {
		view := d.viewLocked()
		d.mu.Unlock()

		d.metrics.RecordForecast(symbol, "superseded")
		d.log.Info("discarding stale forecast",
			logger.Uint64("request_id", id),
			logger.String("symbol", symbol),
		)
		d.notify(models.DashboardEvent{Type: models.TransitionPredictDiscarded, RequestID: id, Symbol: symbol, View: view})
		return view, ErrSuperseded
	}

	if callErr == nil && res == nil {
		callErr = errors.New("empty response")
	}
	if callErr != nil {
		d.errMsg = PredictionFailedMessage
		view := d.viewLocked()
		d.mu.Unlock()

		d.metrics.RecordForecast(symbol, "failed")
		d.log.Warn("forecast failed",
			logger.Uint64("request_id", id),
			logger.String("symbol", symbol),
			logger.Duration("duration_ms", took),
			logger.Error(callErr),
		)
		d.notify(models.DashboardEvent{Type: models.TransitionPredictFailed, RequestID: id, Symbol: symbol, View: view})
		return view, fmt.Errorf("%w: %w", ErrPredictionFailed, callErr)
	}

	d.result = res.Clone()
	d.errMsg = ""
	view := d.viewLocked()
	d.mu.Unlock()

	d.metrics.RecordForecast(symbol, "ok")
	d.metrics.RecordLastPrice(symbol, res.LastPrice)
	d.log.Info("forecast applied",
		logger.Uint64("request_id", id),
		logger.String("symbol", symbol),
		logger.Int("points", len(res.Predictions)),
		logger.Float64("last_price", res.LastPrice),
		logger.Duration("duration_ms", took),
	)
	d.notify(models.DashboardEvent{Type: models.TransitionPredictSucceeded, RequestID: id, Symbol: symbol, View: view})
	return view, nil
}

// View returns a snapshot with all derived display values.
func (d *Dashboard) View() models.DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// Loading reports whether a forecast is in flight.
func (d *Dashboard) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Stocks returns a copy of the active catalog.
func (d *Dashboard) Stocks() []models.Symbol {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Symbol(nil), d.stocks...)
}

// caller holds mu
func (d *Dashboard) viewLocked() models.DashboardView {
	v := models.DashboardView{
		Stocks:     append([]models.Symbol(nil), d.stocks...),
		Confidence: d.confidence,
		Levels:     models.ConfidenceLevels(),
		Loading:    d.loading,
		Error:      d.errMsg,
		Disclaimer: models.Disclaimer(),
	}
	if d.selected != nil {
		s := *d.selected
		v.Selected = &s
	}
	if d.result != nil {
		v.Result = d.result.Clone()
		v.Summary = insights.Summarize(d.result, d.confidence)
		v.Rows = insights.BuildRows(d.result.Predictions, d.confidence)
	}
	return v
}
