package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/internal/config"
	"github.com/sells-group/leadmail-cli/internal/resilience"
	"github.com/sells-group/leadmail-cli/pkg/anthropic"
)

// countingClient implements anthropic.Client for tests.
type countingClient struct {
	calls    int
	response string
	err      error
}

func (c *countingClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: c.response}},
	}, nil
}

func newTestAgent(t *testing.T, client anthropic.Client) *Agent {
	t.Helper()
	a, err := NewAgent(client, config.AnthropicConfig{Model: "test-model", MaxTokens: 700})
	require.NoError(t, err)
	a.retry = resilience.RetryConfig{MaxAttempts: 1}
	return a
}

func TestNewAgent_Validation(t *testing.T) {
	_, err := NewAgent(nil, config.AnthropicConfig{Model: "m"})
	assert.Error(t, err)

	_, err = NewAgent(&countingClient{}, config.AnthropicConfig{})
	assert.Error(t, err)
}

func TestParseAgentResponse_ProseWrappedJSON(t *testing.T) {
	res := parseAgentResponse(`Sure! Here is the extraction:
{"is_lead": true, "company_name": "Razorpay Pvt Ltd", "company_domain": "razorpay.com",
 "role_title": "SDE Intern", "location": "Bengaluru", "source_links": ["https://razorpay.com"], "confidence": 0.92}
Hope that helps.`)

	assert.True(t, res.IsLead)
	assert.Equal(t, "Razorpay Pvt Ltd", res.CompanyName)
	assert.Equal(t, "razorpay", res.NormalizedName)
	assert.Equal(t, "razorpay.com", res.CompanyDomain)
	assert.Equal(t, []string{"https://razorpay.com"}, res.SourceLinks)
	assert.InDelta(t, 0.92, res.Confidence, 0.001)
}

func TestParseAgentResponse_NoJSON(t *testing.T) {
	res := parseAgentResponse("no json here at all")
	assert.False(t, res.IsLead)
	assert.Empty(t, res.CompanyName)
}

func TestParseAgentResponse_MalformedJSON(t *testing.T) {
	res := parseAgentResponse(`{"is_lead": true, "company_name": `)
	assert.False(t, res.IsLead)
}

func TestParseAgentResponse_NullCompany(t *testing.T) {
	res := parseAgentResponse(`{"is_lead": false, "company_name": null, "confidence": 0.1}`)
	assert.False(t, res.IsLead)
	assert.Empty(t, res.CompanyName)
	assert.Empty(t, res.NormalizedName)
}

func TestParseAgentResponse_ConfidenceClamped(t *testing.T) {
	res := parseAgentResponse(`{"is_lead": true, "company_name": "Acme", "confidence": 7.5}`)
	assert.Equal(t, 1.0, res.Confidence)

	res = parseAgentResponse(`{"is_lead": true, "company_name": "Acme", "confidence": -2}`)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestParseAgentResponse_SourceLinksCoerced(t *testing.T) {
	// Non-list source_links dropped.
	res := parseAgentResponse(`{"is_lead": true, "company_name": "Acme", "source_links": "not-a-list", "confidence": 0.5}`)
	assert.Nil(t, res.SourceLinks)

	// Falsy entries dropped, the rest stringified.
	res = parseAgentResponse(`{"is_lead": true, "company_name": "Acme", "source_links": ["a", "", "b"], "confidence": 0.5}`)
	assert.Equal(t, []string{"a", "b"}, res.SourceLinks)
}

func TestAgentExtract_TransportErrorReturned(t *testing.T) {
	client := &countingClient{err: eris.New("dial timeout")}
	_, err := newTestAgent(t, client).Extract(context.Background(), "subj", "body", "a@b.com")
	assert.Error(t, err)
}
