package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/config"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/normalize"
	"github.com/sells-group/leadmail-cli/internal/resilience"
	"github.com/sells-group/leadmail-cli/pkg/anthropic"
)

const extractSystemPrompt = `You are an information extraction engine.
Extract structured fields from an email about internship/company leads.

Rules:
- Output MUST be valid JSON only. No markdown. No extra commentary.
- If a field is unknown, set it to null.
- Company name must be the actual organization, not a newsletter brand, bank alert, payment system, or generic term.
- If the email is not a recruiting/lead email, set is_lead=false and company_name=null.`

const extractUserTemplate = `Extract the lead info from this email.

Return JSON with exactly these keys:
{
  "is_lead": boolean,
  "company_name": string|null,
  "company_domain": string|null,
  "role_title": string|null,
  "location": string|null,
  "source_links": [string],
  "confidence": number
}

Email:
FROM: %s
SUBJECT: %s

BODY:
%s`

const (
	maxSubjectChars = 300
	maxBodyChars    = 6000
)

// Models wrap JSON in prose often enough that we pull the first
// brace-delimited object instead of parsing the whole response.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// Agent escalates inconclusive heuristic extractions to the model service.
type Agent struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
	retry  resilience.RetryConfig
}

// NewAgent creates an extraction agent. Missing key or model is a
// configuration error: it must surface at startup, not per email.
func NewAgent(client anthropic.Client, cfg config.AnthropicConfig) (*Agent, error) {
	if client == nil {
		return nil, eris.New("extract: nil anthropic client")
	}
	if cfg.Model == "" {
		return nil, eris.New("extract: anthropic model not configured")
	}
	return &Agent{client: client, cfg: cfg, retry: resilience.DefaultRetryConfig()}, nil
}

// Extract asks the model for structured lead fields. Transport failures are
// returned to the caller (who degrades to the heuristic result); a response
// that is not well-formed JSON yields an empty non-lead result, never an
// error — the pipeline must not fail an email because the model misbehaved.
func (a *Agent) Extract(ctx context.Context, subject, body, fromEmail string) (model.ExtractionResult, error) {
	user := fmt.Sprintf(extractUserTemplate,
		fromEmail,
		truncate(subject, maxSubjectChars),
		truncate(body, maxBodyChars),
	)

	temp := a.cfg.Temperature
	resp, err := resilience.DoVal(ctx, a.retry, "extract_llm", func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       a.cfg.Model,
			MaxTokens:   a.cfg.MaxTokens,
			System:      extractSystemPrompt,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: user},
			},
		})
	})
	if err != nil {
		return model.ExtractionResult{Source: model.SourceLLM}, eris.Wrap(err, "extract: llm call")
	}

	return parseAgentResponse(resp.Text()), nil
}

// agentPayload is the strict JSON contract demanded by the system prompt.
type agentPayload struct {
	IsLead        bool            `json:"is_lead"`
	CompanyName   *string         `json:"company_name"`
	CompanyDomain *string         `json:"company_domain"`
	RoleTitle     *string         `json:"role_title"`
	Location      *string         `json:"location"`
	SourceLinks   json.RawMessage `json:"source_links"`
	Confidence    json.Number     `json:"confidence"`
}

func parseAgentResponse(text string) model.ExtractionResult {
	empty := model.ExtractionResult{Source: model.SourceLLM}

	block := jsonBlockRe.FindString(text)
	if block == "" {
		zap.L().Warn("extract: no JSON object in model response")
		return empty
	}

	var p agentPayload
	if err := json.Unmarshal([]byte(block), &p); err != nil {
		zap.L().Warn("extract: malformed model JSON", zap.Error(err))
		return empty
	}

	name := normalize.Display(deref(p.CompanyName))

	conf, _ := p.Confidence.Float64()
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return model.ExtractionResult{
		IsLead:         p.IsLead,
		CompanyName:    name,
		NormalizedName: normalize.Key(name),
		CompanyDomain:  deref(p.CompanyDomain),
		RoleTitle:      deref(p.RoleTitle),
		Location:       deref(p.Location),
		SourceLinks:    coerceLinks(p.SourceLinks),
		Confidence:     conf,
		Source:         model.SourceLLM,
	}
}

// coerceLinks accepts only a JSON array, keeping non-empty string entries.
func coerceLinks(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
