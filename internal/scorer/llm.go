package scorer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/config"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/resilience"
	"github.com/sells-group/leadmail-cli/pkg/anthropic"
)

const llmScoreSystemPrompt = `You are a strict lead scoring agent for company evaluation.
Return ONLY valid JSON. No markdown. No extra text.
Use the rubric + weights exactly.
Be conservative when data is missing.`

// LLMScorer scores a company via the model service using the same rubric
// and weights as the rule-based engine. Unlike extraction, a malformed
// response here is a hard error: a silently wrong score is worse than a
// visible failure.
type LLMScorer struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
	prefs  []string
	retry  resilience.RetryConfig
}

// NewLLMScorer creates the model-based scorer. Missing model configuration
// is an error at construction time, never mid-run.
func NewLLMScorer(client anthropic.Client, cfg config.AnthropicConfig, domainPreferences []string) (*LLMScorer, error) {
	if client == nil {
		return nil, eris.New("scorer: nil anthropic client")
	}
	if cfg.Model == "" {
		return nil, eris.New("scorer: anthropic model not configured")
	}
	return &LLMScorer{
		client: client,
		cfg:    cfg,
		prefs:  domainPreferences,
		retry:  resilience.DefaultRetryConfig(),
	}, nil
}

// llmScoreRequest is the structured user prompt sent to the model.
type llmScoreRequest struct {
	Task              string               `json:"task"`
	CompanyName       string               `json:"company_name"`
	DomainPreferences string               `json:"domain_preferences"`
	WeightsPercent    map[string]int       `json:"weights_percent"`
	OutputSchema      map[string]any       `json:"required_output_json_schema"`
	Rules             []string             `json:"rules"`
	Profile           model.CompanyProfile `json:"company_profile_input"`
}

// llmScorePayload is the strict response contract.
type llmScorePayload struct {
	Subscores  map[string]int `json:"subscores_1_to_5"`
	TotalScore *float64       `json:"total_score_0_100"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	RedFlags   []string       `json:"red_flags"`
}

// Score asks the model to evaluate the company. Any parse failure of the
// response JSON is surfaced to the caller.
func (s *LLMScorer) Score(ctx context.Context, companyName string, profile model.CompanyProfile) (model.ScoreResult, error) {
	user, err := json.Marshal(s.buildRequest(companyName, profile))
	if err != nil {
		return model.ScoreResult{}, eris.Wrap(err, "scorer: marshal prompt")
	}

	temp := s.cfg.Temperature
	resp, err := resilience.DoVal(ctx, s.retry, "score_llm", func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       s.cfg.Model,
			MaxTokens:   s.cfg.MaxTokens,
			System:      llmScoreSystemPrompt,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: string(user)},
			},
		})
	})
	if err != nil {
		return model.ScoreResult{}, eris.Wrap(err, "scorer: llm call")
	}

	result, err := parseScoreResponse(resp.Text())
	if err != nil {
		return model.ScoreResult{}, err
	}

	zap.L().Info("scorer: llm score complete",
		zap.String("company", companyName),
		zap.Float64("total", result.TotalScore),
		zap.String("label", string(result.Label)),
	)
	return result, nil
}

func (s *LLMScorer) buildRequest(companyName string, profile model.CompanyProfile) llmScoreRequest {
	prefs := "(not provided)"
	if len(s.prefs) > 0 {
		prefs = strings.Join(s.prefs, ", ")
	}

	weightsPercent := make(map[string]int, 7)
	for dim, w := range model.ScoreWeights() {
		weightsPercent[dim] = int(w * 100)
	}

	return llmScoreRequest{
		Task:              "Score this company and generate a structured evaluation for a student placement lead scoring system.",
		CompanyName:       companyName,
		DomainPreferences: prefs,
		WeightsPercent:    weightsPercent,
		OutputSchema: map[string]any{
			"subscores_1_to_5": map[string]string{
				model.DimAge: "int 1-5", model.DimEmployees: "int 1-5",
				model.DimFinancial: "int 1-5", model.DimFounders: "int 1-5",
				model.DimDomain: "int 1-5", model.DimProject: "int 1-5",
				model.DimGeo: "int 1-5",
			},
			"total_score_0_100": "int 0-100",
			"label":             "one of: Strong, Moderate, Weak, Disqualified",
			"confidence":        "float 0-1",
			"missing_fields":    "list[str]",
			"red_flags":         "list[str]",
		},
		Rules: []string{
			"If data is insufficient for a dimension, score 2 (not 1) and add it to missing_fields.",
			"Disqualified only if there is a clear hard red flag (e.g., scam indicators, illegal activity, explicit mismatch).",
			"Compute total_score_0_100 using the provided weights (weighted average of 1-5 mapped to 0-100).",
			"Mapping from subscore to 0-100: 1->20, 2->40, 3->60, 4->80, 5->100.",
			"Confidence should reflect completeness + reliability of the profile (0.3 low, 0.7 decent, 0.9 very strong).",
		},
		Profile: profile,
	}
}

// parseScoreResponse parses the model's JSON strictly. A missing total is
// recomputed locally from the sub-scores; anything else malformed is an
// error.
func parseScoreResponse(text string) (model.ScoreResult, error) {
	var p llmScorePayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return model.ScoreResult{}, eris.Wrapf(err, "scorer: model did not return valid JSON (raw: %.200s)", text)
	}

	total := recomputeTotal(p.Subscores)
	if p.TotalScore != nil {
		total = *p.TotalScore
	}

	label, err := parseLabel(p.Label, total)
	if err != nil {
		return model.ScoreResult{}, err
	}

	result := model.ScoreResult{
		Disqualified:      label == model.LabelDisqualified,
		TotalScore:        total,
		Label:             label,
		ProfileConfidence: p.Confidence,
		LowConfidence:     p.Confidence < lowConfidenceThreshold,
		Subscores:         p.Subscores,
		Weights:           model.ScoreWeights(),
	}
	if len(p.RedFlags) > 0 {
		result.Reason = strings.Join(p.RedFlags, "; ")
	}
	return result, nil
}

// recomputeTotal derives the 0-100 total from sub-scores using the fixed
// 1→20 … 5→100 mapping and the standard weights.
func recomputeTotal(subscores map[string]int) float64 {
	var total float64
	for dim, w := range model.ScoreWeights() {
		total += float64(subscores[dim]) * 20 * w
	}
	return total
}

func parseLabel(raw string, total float64) (model.ScoreLabel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strong":
		return model.LabelStrong, nil
	case "moderate", "medium":
		return model.LabelModerate, nil
	case "weak":
		return model.LabelWeak, nil
	case "disqualified":
		return model.LabelDisqualified, nil
	case "":
		// Tolerate a missing label the same way as a missing total.
		switch {
		case total >= strongThreshold:
			return model.LabelStrong, nil
		case total >= moderateThreshold:
			return model.LabelModerate, nil
		case total >= weakThreshold:
			return model.LabelWeak, nil
		default:
			return model.LabelDisqualified, nil
		}
	default:
		return "", eris.Errorf("scorer: unknown label %q in model response", raw)
	}
}
