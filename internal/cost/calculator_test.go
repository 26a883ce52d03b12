package cost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/pkg/anthropic"
)

func testRates() Rates {
	return Rates{
		"test-model": {Input: 1.00, Output: 5.00},
	}
}

func TestCalculator_Message(t *testing.T) {
	c := NewCalculator(testRates())

	// 1M input at $1 + 100k output at $5.
	assert.InDelta(t, 1.50, c.Message("test-model", 1_000_000, 100_000), 0.0001)
	assert.Zero(t, c.Message("unknown-model", 1_000_000, 1_000_000))
	assert.Zero(t, c.Message("test-model", 0, 0))
}

func TestTracker_Record(t *testing.T) {
	tr := NewTracker(NewCalculator(testRates()))

	tr.Record("test-model", 1_000_000, 0)
	tr.Record("test-model", 0, 100_000)
	tr.Record("unknown-model", 500, 500)

	u := tr.Snapshot()
	assert.Equal(t, 3, u.Calls)
	assert.Equal(t, int64(1_000_500), u.InputTokens)
	assert.Equal(t, int64(100_500), u.OutputTokens)
	assert.InDelta(t, 1.50, u.CostUSD, 0.0001)
}

type stubClient struct {
	resp *anthropic.MessageResponse
	err  error
}

func (s *stubClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return s.resp, s.err
}

func TestTrackingClient_RecordsUsage(t *testing.T) {
	tr := NewTracker(NewCalculator(testRates()))
	client := NewTrackingClient(&stubClient{
		resp: &anthropic.MessageResponse{
			Model: "test-model",
			Usage: anthropic.TokenUsage{InputTokens: 2000, OutputTokens: 300},
		},
	}, tr)

	_, err := client.CreateMessage(context.Background(), anthropic.MessageRequest{})
	require.NoError(t, err)

	u := tr.Snapshot()
	assert.Equal(t, 1, u.Calls)
	assert.Equal(t, int64(2000), u.InputTokens)
	assert.Equal(t, int64(300), u.OutputTokens)
}

func TestTrackingClient_ErrorNotRecorded(t *testing.T) {
	tr := NewTracker(nil)
	client := NewTrackingClient(&stubClient{err: assert.AnError}, tr)

	_, err := client.CreateMessage(context.Background(), anthropic.MessageRequest{})
	require.Error(t, err)
	assert.Zero(t, tr.Snapshot().Calls)
}
