package cost

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/pkg/anthropic"
)

// Usage is a snapshot of accumulated model spend.
type Usage struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Tracker accumulates token usage and estimated spend across model calls.
// Safe for concurrent use.
type Tracker struct {
	calc *Calculator

	mu    sync.Mutex
	usage Usage
}

// NewTracker creates a Tracker priced by calc. A nil calc uses DefaultRates.
func NewTracker(calc *Calculator) *Tracker {
	if calc == nil {
		calc = NewCalculator(DefaultRates())
	}
	return &Tracker{calc: calc}
}

// Record adds one call's token usage and returns its estimated cost.
func (t *Tracker) Record(model string, inputTokens, outputTokens int64) float64 {
	c := t.calc.Message(model, inputTokens, outputTokens)

	t.mu.Lock()
	t.usage.Calls++
	t.usage.InputTokens += inputTokens
	t.usage.OutputTokens += outputTokens
	t.usage.CostUSD += c
	t.mu.Unlock()

	return c
}

// Snapshot returns the accumulated usage so far.
func (t *Tracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// trackingClient decorates an anthropic.Client, recording each response's
// token usage.
type trackingClient struct {
	inner   anthropic.Client
	tracker *Tracker
}

// NewTrackingClient wraps client so every successful call is recorded on
// tracker.
func NewTrackingClient(client anthropic.Client, tracker *Tracker) anthropic.Client {
	return &trackingClient{inner: client, tracker: tracker}
}

func (c *trackingClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	resp, err := c.inner.CreateMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	callCost := c.tracker.Record(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	total := c.tracker.Snapshot()
	zap.L().Debug("cost: model call",
		zap.String("model", resp.Model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("call_cost_usd", callCost),
		zap.Float64("total_cost_usd", total.CostUSD),
	)
	return resp, nil
}
