package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadmail-cli/internal/db"
	"github.com/sells-group/leadmail-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot per-email operations.
var preparedStatements = map[string]string{
	"insert_email": `INSERT INTO emails
		(id, message_id, thread_id, from_name, from_email, subject, snippet, body_text, internal_date, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (message_id) DO NOTHING`,
	"mark_processed": `UPDATE emails SET processed = true, relevance_reason = $1 WHERE id = $2`,
	"get_company":    `SELECT id, name, normalized_name, first_seen_at, last_seen_at FROM companies WHERE normalized_name = $1`,
	"link_email_company": `INSERT INTO email_companies (email_id, company_id, confidence, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email_id, company_id) DO UPDATE SET
			confidence = GREATEST(email_companies.confidence, EXCLUDED.confidence),
			source = EXCLUDED.source`,
	"set_profile": `INSERT INTO company_profiles (company_id, profile, fetched_at) VALUES ($1, $2, $3)
		ON CONFLICT (company_id) DO UPDATE SET profile = EXCLUDED.profile, fetched_at = EXCLUDED.fetched_at`,
	"set_score": `INSERT INTO company_scores (company_id, total_score, label, result, scored_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			label = EXCLUDED.label,
			result = EXCLUDED.result,
			scored_at = EXCLUDED.scored_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS emails (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	message_id       TEXT NOT NULL UNIQUE,
	thread_id        TEXT,
	from_name        TEXT,
	from_email       TEXT NOT NULL,
	subject          TEXT NOT NULL DEFAULT '',
	snippet          TEXT,
	body_text        TEXT NOT NULL DEFAULT '',
	internal_date    BIGINT,
	received_at      TIMESTAMPTZ,
	processed        BOOLEAN NOT NULL DEFAULT false,
	relevance_reason TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL UNIQUE,
	first_seen_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS email_companies (
	email_id   TEXT NOT NULL REFERENCES emails(id),
	company_id TEXT NOT NULL REFERENCES companies(id),
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (email_id, company_id)
);

CREATE TABLE IF NOT EXISTS company_profiles (
	company_id TEXT PRIMARY KEY REFERENCES companies(id),
	profile    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS company_scores (
	company_id  TEXT PRIMARY KEY REFERENCES companies(id),
	total_score DOUBLE PRECISION NOT NULL,
	label       TEXT NOT NULL,
	result      JSONB NOT NULL,
	scored_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_failures (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	message_id TEXT NOT NULL,
	stage      TEXT NOT NULL,
	error      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_emails_processed ON emails(processed);
CREATE INDEX IF NOT EXISTS idx_email_companies_company ON email_companies(company_id);
CREATE INDEX IF NOT EXISTS idx_scores_label ON company_scores(label);
CREATE INDEX IF NOT EXISTS idx_failures_message ON processing_failures(message_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertEmail(ctx context.Context, msg model.EmailMessage) (string, bool, error) {
	if msg.MessageID == "" {
		return "", false, eris.New("postgres: email has no message id")
	}

	id := uuid.New().String()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO emails
		 (id, message_id, thread_id, from_name, from_email, subject, snippet, body_text, internal_date, received_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (message_id) DO NOTHING`,
		id, msg.MessageID, msg.ThreadID, msg.FromName, msg.FromEmail,
		msg.Subject, msg.Snippet, msg.BodyText, msg.InternalDate,
		nullTime(msg.ReceivedAt), time.Now().UTC(),
	)
	if err != nil {
		return "", false, eris.Wrapf(err, "postgres: insert email %s", msg.MessageID)
	}
	if tag.RowsAffected() > 0 {
		return id, true, nil
	}

	row := s.pool.QueryRow(ctx, `SELECT id FROM emails WHERE message_id = $1`, msg.MessageID)
	var existing string
	if err := row.Scan(&existing); err != nil {
		return "", false, eris.Wrapf(err, "postgres: lookup email %s", msg.MessageID)
	}
	return existing, false, nil
}

// BulkImport stages the batch through a temp table and upserts on message_id,
// so re-importing a dump is a no-op beyond refreshing mutable columns.
func (s *PostgresStore) BulkImport(ctx context.Context, msgs []model.EmailMessage) (int64, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(msgs))
	for _, msg := range msgs {
		if msg.MessageID == "" {
			continue
		}
		rows = append(rows, []any{
			uuid.New().String(), msg.MessageID, msg.ThreadID, msg.FromName, msg.FromEmail,
			msg.Subject, msg.Snippet, msg.BodyText, msg.InternalDate,
			nullTime(msg.ReceivedAt), now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "emails",
		Columns: []string{
			"id", "message_id", "thread_id", "from_name", "from_email",
			"subject", "snippet", "body_text", "internal_date", "received_at", "created_at",
		},
		ConflictKeys: []string{"message_id"},
		UpdateCols:   []string{"subject", "snippet", "body_text"},
	}, rows)
	return n, eris.Wrap(err, "postgres: bulk import")
}

func (s *PostgresStore) ListUnprocessed(ctx context.Context, limit int) ([]StoredEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, message_id, COALESCE(thread_id, ''), COALESCE(from_name, ''), from_email,
			subject, COALESCE(snippet, ''), body_text, COALESCE(internal_date, 0)
		 FROM emails WHERE processed = false ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unprocessed")
	}
	defer rows.Close()

	var out []StoredEmail
	for rows.Next() {
		var e StoredEmail
		if err := rows.Scan(&e.ID, &e.MessageID, &e.ThreadID, &e.FromName, &e.FromEmail,
			&e.Subject, &e.Snippet, &e.BodyText, &e.InternalDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan email")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list unprocessed iterate")
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, emailID, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE emails SET processed = true, relevance_reason = $1 WHERE id = $2`,
		reason, emailID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark processed %s", emailID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("email not found: %s", emailID)
	}
	return nil
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, name, normalizedName string) (*model.Company, error) {
	if normalizedName == "" {
		return nil, eris.New("postgres: empty normalized name")
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO companies (id, name, normalized_name, first_seen_at, last_seen_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (normalized_name) DO UPDATE SET
			last_seen_at = now(),
			name = CASE WHEN length(EXCLUDED.name) > length(companies.name)
				THEN EXCLUDED.name ELSE companies.name END
		 RETURNING id, name, normalized_name, first_seen_at, last_seen_at`,
		uuid.New().String(), name, normalizedName,
	)

	var c model.Company
	if err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.FirstSeenAt, &c.LastSeenAt); err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert company %s", normalizedName)
	}
	return &c, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, normalizedName string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, normalized_name, first_seen_at, last_seen_at
		 FROM companies WHERE normalized_name = $1`,
		normalizedName,
	)
	var c model.Company
	err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.FirstSeenAt, &c.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", normalizedName)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, limit, offset int) ([]model.Company, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, normalized_name, first_seen_at, last_seen_at
		 FROM companies ORDER BY last_seen_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.FirstSeenAt, &c.LastSeenAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) LinkEmailCompany(ctx context.Context, link model.EmailCompanyLink) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_companies (email_id, company_id, confidence, source, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email_id, company_id) DO UPDATE SET
			confidence = GREATEST(email_companies.confidence, EXCLUDED.confidence),
			source = EXCLUDED.source`,
		link.EmailID, link.CompanyID, link.Confidence, link.Source, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: link email company")
}

func (s *PostgresStore) GetProfile(ctx context.Context, companyID string, maxAge time.Duration) (*model.CompanyProfile, error) {
	query := `SELECT profile, fetched_at FROM company_profiles WHERE company_id = $1`
	args := []any{companyID}
	if maxAge > 0 {
		query += ` AND fetched_at > $2`
		args = append(args, time.Now().UTC().Add(-maxAge))
	}

	row := s.pool.QueryRow(ctx, query, args...)
	var profileJSON []byte
	var fetchedAt time.Time
	err := row.Scan(&profileJSON, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", companyID)
	}

	var p model.CompanyProfile
	if err := json.Unmarshal(profileJSON, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	p.FetchedAt = fetchedAt
	return &p, nil
}

func (s *PostgresStore) SetProfile(ctx context.Context, companyID string, profile model.CompanyProfile) error {
	if profile.FetchedAt.IsZero() {
		profile.FetchedAt = time.Now().UTC()
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO company_profiles (company_id, profile, fetched_at) VALUES ($1, $2, $3)
		 ON CONFLICT (company_id) DO UPDATE SET
			profile = EXCLUDED.profile,
			fetched_at = EXCLUDED.fetched_at`,
		companyID, profileJSON, profile.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: set profile %s", companyID)
}

func (s *PostgresStore) SetScore(ctx context.Context, companyID string, score model.ScoreResult) error {
	resultJSON, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal score")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO company_scores (company_id, total_score, label, result, scored_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (company_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			label = EXCLUDED.label,
			result = EXCLUDED.result,
			scored_at = EXCLUDED.scored_at`,
		companyID, score.TotalScore, string(score.Label), resultJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set score %s", companyID)
}

func (s *PostgresStore) GetScore(ctx context.Context, companyID string) (*model.ScoreResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT result FROM company_scores WHERE company_id = $1`, companyID,
	)
	var resultJSON []byte
	err := row.Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get score %s", companyID)
	}

	var sc model.ScoreResult
	if err := json.Unmarshal(resultJSON, &sc); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal score")
	}
	return &sc, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.RankedCompany, error) {
	query := `SELECT c.id, c.name, c.normalized_name, c.first_seen_at, c.last_seen_at,
		p.profile, s.result,
		(SELECT COUNT(*) FROM email_companies ec WHERE ec.company_id = c.id) AS mentions
	FROM companies c
	LEFT JOIN company_profiles p ON p.company_id = c.id
	LEFT JOIN company_scores s ON s.company_id = c.id
	WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Label != "" {
		query += ` AND s.label = ` + arg(string(filter.Label))
	}
	if filter.MinScore > 0 {
		query += ` AND s.total_score >= ` + arg(filter.MinScore)
	}
	query += ` ORDER BY COALESCE(s.total_score, -1) DESC, mentions DESC, c.first_seen_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.RankedCompany
	for rows.Next() {
		var rc model.RankedCompany
		var profileJSON, resultJSON []byte
		if err := rows.Scan(&rc.Company.ID, &rc.Company.Name, &rc.Company.NormalizedName,
			&rc.Company.FirstSeenAt, &rc.Company.LastSeenAt,
			&profileJSON, &resultJSON, &rc.Mentions); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ranked company")
		}
		if len(profileJSON) > 0 {
			rc.Profile = &model.CompanyProfile{}
			if err := json.Unmarshal(profileJSON, rc.Profile); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal profile")
			}
		}
		if len(resultJSON) > 0 {
			rc.Score = &model.ScoreResult{}
			if err := json.Unmarshal(resultJSON, rc.Score); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal score")
			}
		}
		out = append(out, rc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) RecordFailure(ctx context.Context, messageID, stage, errText string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processing_failures (id, message_id, stage, error, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), messageID, stage, errText, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: record failure")
}

func (s *PostgresStore) ListFailures(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, message_id, stage, error, created_at
		 FROM processing_failures ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failures")
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.ID, &f.MessageID, &f.Stage, &f.Error, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failures iterate")
}

