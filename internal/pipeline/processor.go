// Package pipeline orchestrates per-email lead processing: relevance
// classification, company extraction, and persistence. Emails are processed
// sequentially in import order; a failure on one email is dead-lettered and
// never takes down the run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/extract"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/store"
)

// Summary reports the outcome of one processing run.
type Summary struct {
	Total    int           `json:"total"`
	Leads    int           `json:"leads"`
	Rejected int           `json:"rejected"`
	NoLead   int           `json:"no_lead"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Processor runs the lead pipeline over stored emails.
type Processor struct {
	store    store.Store
	resolver *extract.Resolver
}

// NewProcessor wires the processor.
func NewProcessor(st store.Store, resolver *extract.Resolver) (*Processor, error) {
	if st == nil {
		return nil, eris.New("pipeline: nil store")
	}
	if resolver == nil {
		return nil, eris.New("pipeline: nil resolver")
	}
	return &Processor{store: st, resolver: resolver}, nil
}

// Run processes up to limit unprocessed emails. Only context cancellation or
// a failure to even list emails aborts the run.
func (p *Processor) Run(ctx context.Context, limit int) (*Summary, error) {
	start := time.Now()

	emails, err := p.store.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list unprocessed")
	}

	summary := &Summary{Total: len(emails)}
	for _, email := range emails {
		if ctx.Err() != nil {
			return summary, eris.Wrap(ctx.Err(), "pipeline: run canceled")
		}
		p.processOne(ctx, email, summary)
	}

	summary.Duration = time.Since(start)
	zap.L().Info("pipeline: run complete",
		zap.Int("total", summary.Total),
		zap.Int("leads", summary.Leads),
		zap.Int("rejected", summary.Rejected),
		zap.Int("no_lead", summary.NoLead),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (p *Processor) processOne(ctx context.Context, email store.StoredEmail, summary *Summary) {
	result := p.resolver.Resolve(ctx, email.Subject, email.BodyText, email.FromEmail)

	if !result.IsLead {
		summary.Rejected++
		p.finish(ctx, email, result.Reason, summary)
		return
	}

	if !result.HasCompany() {
		// Relevant email, but nothing extractable to pin it on.
		summary.NoLead++
		p.finish(ctx, email, result.Reason, summary)
		return
	}

	company, err := p.store.UpsertCompany(ctx, result.CompanyName, result.NormalizedName)
	if err != nil {
		p.deadLetter(ctx, email, "persist_company", err, summary)
		return
	}

	err = p.store.LinkEmailCompany(ctx, model.EmailCompanyLink{
		EmailID:    email.ID,
		CompanyID:  company.ID,
		Confidence: result.Confidence,
		Source:     result.Source,
	})
	if err != nil {
		p.deadLetter(ctx, email, "link_company", err, summary)
		return
	}

	summary.Leads++
	zap.L().Debug("pipeline: lead recorded",
		zap.String("message_id", email.MessageID),
		zap.String("company", company.Name),
		zap.String("source", result.Source),
		zap.Float64("confidence", result.Confidence),
	)
	p.finish(ctx, email, result.Reason, summary)
}

// finish marks the email processed. Failing to mark is itself a failure:
// the email would be reprocessed forever otherwise.
func (p *Processor) finish(ctx context.Context, email store.StoredEmail, reason string, summary *Summary) {
	if err := p.store.MarkProcessed(ctx, email.ID, reason); err != nil {
		p.deadLetter(ctx, email, "mark_processed", err, summary)
	}
}

func (p *Processor) deadLetter(ctx context.Context, email store.StoredEmail, stage string, cause error, summary *Summary) {
	summary.Failed++
	zap.L().Error("pipeline: email failed",
		zap.String("message_id", email.MessageID),
		zap.String("stage", stage),
		zap.Error(cause),
	)
	if err := p.store.RecordFailure(ctx, email.MessageID, stage, cause.Error()); err != nil {
		zap.L().Error("pipeline: dead letter write failed",
			zap.String("message_id", email.MessageID),
			zap.Error(err),
		)
	}
}
