package store

import (
	"context"
	"time"

	"github.com/sells-group/leadmail-cli/internal/model"
)

// StoredEmail is an email row together with its storage identifier. The
// identifier is internal to the store; everything upstream keys on MessageID.
type StoredEmail struct {
	ID string `json:"id"`
	model.EmailMessage
}

// LeadFilter specifies criteria for the ranked lead listing.
type LeadFilter struct {
	Label    model.ScoreLabel `json:"label,omitempty"`
	MinScore float64          `json:"min_score,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Emails. InsertEmail is idempotent on MessageID: re-importing the same
	// dump never duplicates rows. The bool reports whether a row was created.
	InsertEmail(ctx context.Context, msg model.EmailMessage) (string, bool, error)
	// BulkImport inserts a batch of emails with the same idempotency
	// guarantee and returns the number of rows written.
	BulkImport(ctx context.Context, msgs []model.EmailMessage) (int64, error)
	ListUnprocessed(ctx context.Context, limit int) ([]StoredEmail, error)
	MarkProcessed(ctx context.Context, emailID, reason string) error

	// Companies
	UpsertCompany(ctx context.Context, name, normalizedName string) (*model.Company, error)
	GetCompany(ctx context.Context, normalizedName string) (*model.Company, error)
	ListCompanies(ctx context.Context, limit, offset int) ([]model.Company, error)
	LinkEmailCompany(ctx context.Context, link model.EmailCompanyLink) error

	// Profiles. GetProfile returns nil when absent or older than maxAge.
	GetProfile(ctx context.Context, companyID string, maxAge time.Duration) (*model.CompanyProfile, error)
	SetProfile(ctx context.Context, companyID string, profile model.CompanyProfile) error

	// Scores
	SetScore(ctx context.Context, companyID string, score model.ScoreResult) error
	GetScore(ctx context.Context, companyID string) (*model.ScoreResult, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.RankedCompany, error)

	// Failures. Per-email processing errors land here instead of aborting
	// the run.
	RecordFailure(ctx context.Context, messageID, stage, errText string) error
	ListFailures(ctx context.Context, limit int) ([]Failure, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Failure is one dead-lettered email processing error.
type Failure struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Stage     string    `json:"stage"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}
