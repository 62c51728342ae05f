package predictor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ForecastDash/internal/domain/models"
	drepo "ForecastDash/internal/domain/repository"
	xhttp "ForecastDash/pkg/http"
)

// ErrMalformed is returned when the service answers 2xx with an unusable body.
var ErrMalformed = errors.New("predictor: malformed response")

// Client implements PredictionService over the service's JSON API.
type Client struct {
	http    *xhttp.Client
	metrics drepo.Metrics
}

// New creates a client rooted at baseURL (e.g. http://localhost:5000/api).
func New(baseURL string, timeout time.Duration, metrics drepo.Metrics, opts ...xhttp.ClientOption) *Client {
	opts = append([]xhttp.ClientOption{
		xhttp.WithBaseURL(baseURL),
		xhttp.WithTimeout(timeout),
	}, opts...)
	return &Client{
		http:    xhttp.NewClient(opts...),
		metrics: metrics,
	}
}

// ListStocks calls GET /stocks.
func (c *Client) ListStocks(ctx context.Context) ([]models.Symbol, error) {
	start := time.Now()
	var out []models.Symbol
	err := c.http.GetJSON(ctx, "stocks", nil, &out)
	c.observe("stocks", start, err)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	return out, nil
}

// Predict calls GET /predict?symbol=&days=.
func (c *Client) Predict(ctx context.Context, symbol string, days int) (*models.ForecastResult, error) {
	start := time.Now()
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("days", strconv.Itoa(days))

	var out models.ForecastResult
	err := c.http.GetJSON(ctx, "predict", q, &out)
	c.observe("predict", start, err)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", symbol, err)
	}
	if out.Predictions == nil {
		return nil, fmt.Errorf("predict %s: %w: no predictions field", symbol, ErrMalformed)
	}
	return &out, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamLatency(op, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordError(op)
	}
}
