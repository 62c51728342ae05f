package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ForecastDash/internal/domain/models"
	"ForecastDash/pkg/logger"
	"ForecastDash/pkg/metrics"
)

type fakeService struct {
	mu        sync.Mutex
	stocks    []models.Symbol
	stocksErr error
	result    *models.ForecastResult
	err       error
	gate      chan struct{}
	entered   chan struct{}
	symbols   []string
	days      []int
}

func (f *fakeService) ListStocks(context.Context) ([]models.Symbol, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stocks, f.stocksErr
}

func (f *fakeService) Predict(ctx context.Context, symbol string, days int) (*models.ForecastResult, error) {
	f.mu.Lock()
	f.symbols = append(f.symbols, symbol)
	f.days = append(f.days, days)
	gate, entered, res, err := f.gate, f.entered, f.result, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res, err
}

func (f *fakeService) set(res *models.ForecastResult, err error) {
	f.mu.Lock()
	f.result, f.err = res, err
	f.mu.Unlock()
}

// block makes the next Predict calls wait until the returned release is called.
func (f *fakeService) block() (entered chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	gate := f.gate
	return f.entered, func() { close(gate) }
}

func msftResult() *models.ForecastResult {
	prices := []float64{305, 310, 298, 312, 315, 320, 318}
	preds := make([]models.PredictionPoint, len(prices))
	for i, p := range prices {
		preds[i] = models.PredictionPoint{Date: time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), PredictedPrice: p}
	}
	return &models.ForecastResult{Symbol: "MSFT", LastPrice: 300, Predictions: preds}
}

func newDashboard(svc *fakeService) *Dashboard {
	log := logger.Nop()
	loader := NewCatalogLoader(svc, metrics.Noop{}, log, time.Second)
	return NewDashboard(svc, loader, metrics.Noop{}, log, 5*time.Second)
}

type recorder struct {
	mu     sync.Mutex
	events []models.DashboardEvent
}

func (r *recorder) listen(ev models.DashboardEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []models.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Transition, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last() models.DashboardEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestLoadCatalogFallback(t *testing.T) {
	cases := map[string]*fakeService{
		"error": {stocksErr: errors.New("connection refused")},
		"empty": {stocks: []models.Symbol{}},
		"nil":   {},
	}
	for name, svc := range cases {
		d := newDashboard(svc)
		if src := d.LoadCatalog(context.Background()); src != CatalogSourceFallback {
			t.Fatalf("%s: source = %s", name, src)
		}
		v := d.View()
		if len(v.Stocks) != 8 {
			t.Fatalf("%s: catalog size = %d, want 8", name, len(v.Stocks))
		}
		if v.Selected == nil || v.Selected.Symbol != "AAPL" {
			t.Fatalf("%s: selected = %+v, want AAPL", name, v.Selected)
		}
		if v.Error != "" {
			t.Fatalf("%s: catalog failure must not surface, got %q", name, v.Error)
		}
	}
}

func TestLoadCatalogFromService(t *testing.T) {
	svc := &fakeService{stocks: []models.Symbol{{Symbol: "TSLA", Name: "Tesla"}, {Symbol: "NVDA", Name: "NVIDIA"}}}
	d := newDashboard(svc)

	if src := d.LoadCatalog(context.Background()); src != CatalogSourceService {
		t.Fatalf("source = %s", src)
	}
	v := d.View()
	if len(v.Stocks) != 2 || v.Selected.Symbol != "TSLA" {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestEmptyDashboardDisablesActions(t *testing.T) {
	d := newDashboard(&fakeService{})

	v := d.View()
	if v.Selected != nil || v.CanPredict() || v.CanSelect() {
		t.Fatalf("empty dashboard should have nothing selectable: %+v", v)
	}
	if v.Confidence != models.Confidence90 {
		t.Fatalf("default confidence = %v", v.Confidence)
	}
	if _, err := d.Predict(context.Background()); !errors.Is(err, ErrNoSymbol) {
		t.Fatalf("expected ErrNoSymbol, got %v", err)
	}
	if _, err := d.Select("AAPL"); !errors.Is(err, ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
}

func TestSelect(t *testing.T) {
	d := newDashboard(&fakeService{stocksErr: errors.New("down")})
	d.LoadCatalog(context.Background())

	v, err := d.Select("MSFT")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v.Selected.Symbol != "MSFT" || v.Selected.Name != "Microsoft Corporation" {
		t.Fatalf("selected = %+v", v.Selected)
	}

	if _, err := d.Select("msft"); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("lookup must be exact, got %v", err)
	}
	if got := d.View().Selected.Symbol; got != "MSFT" {
		t.Fatalf("failed select changed selection to %s", got)
	}
}

func TestSetConfidence(t *testing.T) {
	d := newDashboard(&fakeService{})

	v, err := d.SetConfidence(models.Confidence95)
	if err != nil || v.Confidence != models.Confidence95 {
		t.Fatalf("SetConfidence: %v %v", v.Confidence, err)
	}
	if _, err := d.SetConfidence(0.5); !errors.Is(err, ErrInvalidConfidence) {
		t.Fatalf("expected ErrInvalidConfidence, got %v", err)
	}
	if d.View().Confidence != models.Confidence95 {
		t.Fatalf("invalid level changed state")
	}
}

func TestPredictScenario(t *testing.T) {
	svc := &fakeService{stocksErr: errors.New("down")}
	svc.set(msftResult(), nil)
	d := newDashboard(svc)
	d.LoadCatalog(context.Background())

	rec := &recorder{}
	cancel := d.Subscribe(rec.listen)
	defer cancel()

	if _, err := d.Select("MSFT"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := d.SetConfidence(models.Confidence95); err != nil {
		t.Fatalf("SetConfidence: %v", err)
	}

	entered, release := svc.block()
	done := make(chan error, 1)
	go func() {
		_, err := d.Predict(context.Background())
		done <- err
	}()
	<-entered

	if v := d.View(); !v.Loading || v.CanPredict() || v.CanSelect() {
		t.Fatalf("expected loading while in flight: %+v", v)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Predict: %v", err)
	}

	v := d.View()
	if v.Loading || v.Error != "" {
		t.Fatalf("unexpected state after success: loading=%v error=%q", v.Loading, v.Error)
	}
	if v.Summary == nil || v.Summary.AveragePrice != "311.14" || v.Summary.Trend != models.TrendBullish {
		t.Fatalf("unexpected summary: %+v", v.Summary)
	}
	if v.Summary.ConfidencePercent != "95" || v.Summary.CurrentPrice != "300.00" {
		t.Fatalf("unexpected summary: %+v", v.Summary)
	}
	if len(v.Rows) != 7 || v.Rows[0].Range.Low != "301.95" {
		t.Fatalf("unexpected rows: %+v", v.Rows)
	}
	if svc.symbols[0] != "MSFT" || svc.days[0] != models.ForecastHorizon {
		t.Fatalf("service called with %v %v", svc.symbols, svc.days)
	}

	want := []models.Transition{
		models.TransitionSymbolChanged,
		models.TransitionConfidenceChanged,
		models.TransitionPredictStarted,
		models.TransitionPredictSucceeded,
	}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if ev := rec.last(); ev.View.Loading || ev.RequestID == 0 {
		t.Fatalf("final event: %+v", ev)
	}
}

func TestPredictFailureKeepsPreviousResult(t *testing.T) {
	svc := &fakeService{stocksErr: errors.New("down")}
	svc.set(msftResult(), nil)
	d := newDashboard(svc)
	d.LoadCatalog(context.Background())

	if _, err := d.Predict(context.Background()); err != nil {
		t.Fatalf("first Predict: %v", err)
	}
	before := d.View()

	cause := errors.New("connection reset")
	svc.set(nil, cause)
	v, err := d.Predict(context.Background())
	if !errors.Is(err, ErrPredictionFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	if v.Error != PredictionFailedMessage || v.Loading {
		t.Fatalf("unexpected view: error=%q loading=%v", v.Error, v.Loading)
	}
	if v.Result == nil || len(v.Result.Predictions) != len(before.Result.Predictions) {
		t.Fatalf("previous result lost: %+v", v.Result)
	}
	if v.Summary.AveragePrice != before.Summary.AveragePrice {
		t.Fatalf("summary changed on failure")
	}

	// a later success clears the message
	svc.set(msftResult(), nil)
	if v, err = d.Predict(context.Background()); err != nil || v.Error != "" {
		t.Fatalf("expected recovery, got %q %v", v.Error, err)
	}
}

func TestPredictWhileLoadingIsBusy(t *testing.T) {
	svc := &fakeService{stocksErr: errors.New("down")}
	svc.set(msftResult(), nil)
	d := newDashboard(svc)
	d.LoadCatalog(context.Background())

	entered, release := svc.block()
	done := make(chan error, 1)
	go func() {
		_, err := d.Predict(context.Background())
		done <- err
	}()
	<-entered

	if _, err := d.Predict(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Predict: expected ErrBusy, got %v", err)
	}
	if _, err := d.Select("MSFT"); !errors.Is(err, ErrBusy) {
		t.Fatalf("Select: expected ErrBusy, got %v", err)
	}
	if _, err := d.SetConfidence(models.Confidence80); !errors.Is(err, ErrBusy) {
		t.Fatalf("SetConfidence: expected ErrBusy, got %v", err)
	}

	release()
	if err := <-done; err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(svc.symbols) != 1 {
		t.Fatalf("busy calls reached the service: %v", svc.symbols)
	}
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	svc := &fakeService{stocksErr: errors.New("down")}
	svc.set(msftResult(), nil)
	d := newDashboard(svc)
	d.LoadCatalog(context.Background())

	rec := &recorder{}
	defer d.Subscribe(rec.listen)()

	entered, release := svc.block()
	done := make(chan error, 1)
	go func() {
		_, err := d.Predict(context.Background())
		done <- err
	}()
	<-entered

	d.SetCatalog([]models.Symbol{{Symbol: "TSLA", Name: "Tesla"}})
	if !d.Loading() {
		t.Fatalf("replacing the catalog must not end the in-flight request")
	}

	release()
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	v := d.View()
	if v.Result != nil || v.Loading {
		t.Fatalf("stale result applied: %+v", v)
	}
	if v.Selected.Symbol != "TSLA" {
		t.Fatalf("selected = %s", v.Selected.Symbol)
	}
	if rec.last().Type != models.TransitionPredictDiscarded {
		t.Fatalf("last event = %s", rec.last().Type)
	}

	// a fresh request goes through normally
	if _, err := d.Predict(context.Background()); err != nil {
		t.Fatalf("Predict: %v", err)
	}
}

func TestPredictSurvivesCallerCancellation(t *testing.T) {
	svc := &fakeService{stocksErr: errors.New("down")}
	svc.set(msftResult(), nil)
	d := newDashboard(svc)
	d.LoadCatalog(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	entered, release := svc.block()
	done := make(chan error, 1)
	go func() {
		_, err := d.Predict(ctx)
		done <- err
	}()
	<-entered
	cancel()
	release()

	if err := <-done; err != nil {
		t.Fatalf("cancelled caller aborted the request: %v", err)
	}
	if !d.View().HasResult() {
		t.Fatalf("expected result applied")
	}
}

func TestViewIsASnapshot(t *testing.T) {
	svc := &fakeService{stocksErr: errors.New("down")}
	svc.set(msftResult(), nil)
	d := newDashboard(svc)
	d.LoadCatalog(context.Background())
	if _, err := d.Predict(context.Background()); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	v := d.View()
	v.Result.Predictions[0].PredictedPrice = -1
	v.Stocks[0].Symbol = "XXX"

	again := d.View()
	if again.Result.Predictions[0].PredictedPrice != 305 || again.Stocks[0].Symbol != "AAPL" {
		t.Fatalf("view mutation leaked into state")
	}
}

func TestSubscribeCancel(t *testing.T) {
	d := newDashboard(&fakeService{})
	rec := &recorder{}
	cancel := d.Subscribe(rec.listen)

	d.SetCatalog(models.FallbackCatalog())
	cancel()
	d.SetCatalog(models.FallbackCatalog())

	if n := len(rec.types()); n != 1 {
		t.Fatalf("events after cancel: %d", n)
	}
}
