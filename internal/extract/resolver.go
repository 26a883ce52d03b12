package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/normalize"
	"github.com/sells-group/leadmail-cli/internal/relevance"
)

// Heuristic confidence below this escalates to the model-based extractor.
const escalationThreshold = 0.60

// Resolver is the two-stage extraction coordinator: heuristics first, model
// escalation only when the heuristic output is inconclusive. A model result
// replaces the heuristic one atomically or not at all — partial fields from
// the two sources are never merged.
type Resolver struct {
	agent   *Agent
	enabled bool
}

// NewResolver wires the coordinator. Enabling escalation without a
// configured agent is a configuration error, raised here at startup rather
// than deferred into per-email processing.
func NewResolver(agent *Agent, escalationEnabled bool) (*Resolver, error) {
	if escalationEnabled && agent == nil {
		return nil, eris.New("extract: llm extraction enabled but no agent configured")
	}
	return &Resolver{agent: agent, enabled: escalationEnabled}, nil
}

// Resolve classifies the email and, if it is a lead, extracts its company
// identity. Best effort: it never returns an error — escalation failures
// degrade silently to the heuristic result.
func (r *Resolver) Resolve(ctx context.Context, subject, body, fromEmail string) model.ExtractionResult {
	decision := relevance.Classify(subject, body, fromEmail)
	if !decision.ShouldProcess {
		return model.ExtractionResult{
			IsLead: false,
			Reason: decision.Reason,
			Source: model.SourceNone,
		}
	}

	name, conf, source := PickBest(subject, body, fromEmail)
	key := normalize.Key(name)

	heuristic := model.ExtractionResult{
		IsLead:         true,
		Reason:         decision.Reason,
		CompanyName:    name,
		NormalizedName: key,
		Confidence:     conf,
		Source:         source,
	}

	escalate := name == "" || conf < escalationThreshold || key == ""
	if !escalate || !r.enabled {
		return heuristic
	}

	llmResult, err := r.agent.Extract(ctx, subject, body, fromEmail)
	if err != nil {
		// Escalation unavailable; the heuristic result stands.
		zap.L().Warn("extract: escalation failed, keeping heuristic result",
			zap.String("from", fromEmail),
			zap.Error(err),
		)
		return heuristic
	}

	if llmResult.IsLead && llmResult.NormalizedName != "" {
		llmResult.Reason = decision.Reason
		return llmResult
	}

	return heuristic
}
