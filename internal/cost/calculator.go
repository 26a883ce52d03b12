// Package cost estimates model API spend from token usage. The pipeline
// calls the model at most once per email or company, so the numbers here are
// small; they exist so a run's log tells you what it cost before the invoice
// does.
package cost

// ModelRate holds per-model token pricing in dollars per million tokens.
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps model identifier to pricing.
type Rates map[string]ModelRate

// Calculator computes costs for model API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Message computes the cost of a single message call. Unknown models
// cost zero; pricing gaps must not break accounting.
func (c *Calculator) Message(model string, inputTokens, outputTokens int64) float64 {
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1e6)*rate.Input + (float64(outputTokens)/1e6)*rate.Output
}

// DefaultRates returns pricing for the models the pipeline is configured
// to use.
func DefaultRates() Rates {
	return Rates{
		"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	}
}
