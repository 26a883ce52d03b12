package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadmail-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS emails (
	id               TEXT PRIMARY KEY,
	message_id       TEXT NOT NULL UNIQUE,
	thread_id        TEXT,
	from_name        TEXT,
	from_email       TEXT NOT NULL,
	subject          TEXT NOT NULL DEFAULT '',
	snippet          TEXT,
	body_text        TEXT NOT NULL DEFAULT '',
	internal_date    INTEGER,
	received_at      DATETIME,
	processed        INTEGER NOT NULL DEFAULT 0,
	relevance_reason TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL UNIQUE,
	first_seen_at   DATETIME NOT NULL,
	last_seen_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS email_companies (
	email_id   TEXT NOT NULL REFERENCES emails(id),
	company_id TEXT NOT NULL REFERENCES companies(id),
	confidence REAL NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (email_id, company_id)
);

CREATE TABLE IF NOT EXISTS company_profiles (
	company_id TEXT PRIMARY KEY REFERENCES companies(id),
	profile    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS company_scores (
	company_id  TEXT PRIMARY KEY REFERENCES companies(id),
	total_score REAL NOT NULL,
	label       TEXT NOT NULL,
	result      TEXT NOT NULL,
	scored_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_failures (
	id         TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	stage      TEXT NOT NULL,
	error      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_emails_processed ON emails(processed);
CREATE INDEX IF NOT EXISTS idx_companies_normalized ON companies(normalized_name);
CREATE INDEX IF NOT EXISTS idx_email_companies_company ON email_companies(company_id);
CREATE INDEX IF NOT EXISTS idx_scores_label ON company_scores(label);
CREATE INDEX IF NOT EXISTS idx_failures_message ON processing_failures(message_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertEmail(ctx context.Context, msg model.EmailMessage) (string, bool, error) {
	if msg.MessageID == "" {
		return "", false, eris.New("sqlite: email has no message id")
	}

	id := uuid.New().String()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO emails
		 (id, message_id, thread_id, from_name, from_email, subject, snippet, body_text, internal_date, received_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, msg.MessageID, msg.ThreadID, msg.FromName, msg.FromEmail,
		msg.Subject, msg.Snippet, msg.BodyText, msg.InternalDate,
		nullTime(msg.ReceivedAt), time.Now().UTC(),
	)
	if err != nil {
		return "", false, eris.Wrapf(err, "sqlite: insert email %s", msg.MessageID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return id, true, nil
	}

	// Already imported; hand back the existing row id.
	row := s.db.QueryRowContext(ctx, `SELECT id FROM emails WHERE message_id = ?`, msg.MessageID)
	var existing string
	if err := row.Scan(&existing); err != nil {
		return "", false, eris.Wrapf(err, "sqlite: lookup email %s", msg.MessageID)
	}
	return existing, false, nil
}

// BulkImport wraps per-row inserts in one transaction. SQLite has no COPY
// protocol; a single transaction is what makes large imports tolerable.
func (s *SQLiteStore) BulkImport(ctx context.Context, msgs []model.EmailMessage) (int64, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: bulk import begin")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var written int64
	for _, msg := range msgs {
		if msg.MessageID == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO emails
			 (id, message_id, thread_id, from_name, from_email, subject, snippet, body_text, internal_date, received_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), msg.MessageID, msg.ThreadID, msg.FromName, msg.FromEmail,
			msg.Subject, msg.Snippet, msg.BodyText, msg.InternalDate,
			nullTime(msg.ReceivedAt), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk import %s", msg.MessageID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: bulk import commit")
	}
	return written, nil
}

func (s *SQLiteStore) ListUnprocessed(ctx context.Context, limit int) ([]StoredEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, thread_id, from_name, from_email, subject, snippet, body_text, internal_date
		 FROM emails WHERE processed = 0 ORDER BY created_at LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unprocessed")
	}
	defer rows.Close()

	var out []StoredEmail
	for rows.Next() {
		var e StoredEmail
		var threadID, fromName, snippet sql.NullString
		var internalDate sql.NullInt64
		if err := rows.Scan(&e.ID, &e.MessageID, &threadID, &fromName, &e.FromEmail,
			&e.Subject, &snippet, &e.BodyText, &internalDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan email")
		}
		e.ThreadID = threadID.String
		e.FromName = fromName.String
		e.Snippet = snippet.String
		e.InternalDate = internalDate.Int64
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list unprocessed iterate")
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, emailID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE emails SET processed = 1, relevance_reason = ? WHERE id = ?`,
		reason, emailID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark processed %s", emailID)
	}
	return checkRowsAffected(res, "email", emailID)
}

// UpsertCompany keys strictly on the normalized name. On conflict it bumps
// last_seen_at and keeps whichever display name is longer, so "Razorpay" and
// "Razorpay Pvt Ltd" land on one row with the fuller name.
func (s *SQLiteStore) UpsertCompany(ctx context.Context, name, normalizedName string) (*model.Company, error) {
	if normalizedName == "" {
		return nil, eris.New("sqlite: empty normalized name")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, normalized_name, first_seen_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(normalized_name) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			name = CASE WHEN length(excluded.name) > length(companies.name)
				THEN excluded.name ELSE companies.name END`,
		id, name, normalizedName, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert company %s", normalizedName)
	}
	return s.GetCompany(ctx, normalizedName)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, normalizedName string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, normalized_name, first_seen_at, last_seen_at
		 FROM companies WHERE normalized_name = ?`,
		normalizedName,
	)
	var c model.Company
	err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.FirstSeenAt, &c.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", normalizedName)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, limit, offset int) ([]model.Company, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, normalized_name, first_seen_at, last_seen_at
		 FROM companies ORDER BY last_seen_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.FirstSeenAt, &c.LastSeenAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) LinkEmailCompany(ctx context.Context, link model.EmailCompanyLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_companies (email_id, company_id, confidence, source, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email_id, company_id) DO UPDATE SET
			confidence = MAX(email_companies.confidence, excluded.confidence),
			source = excluded.source`,
		link.EmailID, link.CompanyID, link.Confidence, link.Source, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: link email company")
}

func (s *SQLiteStore) GetProfile(ctx context.Context, companyID string, maxAge time.Duration) (*model.CompanyProfile, error) {
	query := `SELECT profile, fetched_at FROM company_profiles WHERE company_id = ?`
	args := []any{companyID}
	if maxAge > 0 {
		query += ` AND fetched_at > ?`
		args = append(args, time.Now().UTC().Add(-maxAge))
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	var profileJSON string
	var fetchedAt time.Time
	err := row.Scan(&profileJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", companyID)
	}

	var p model.CompanyProfile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	p.FetchedAt = fetchedAt
	return &p, nil
}

func (s *SQLiteStore) SetProfile(ctx context.Context, companyID string, profile model.CompanyProfile) error {
	if profile.FetchedAt.IsZero() {
		profile.FetchedAt = time.Now().UTC()
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO company_profiles (company_id, profile, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(company_id) DO UPDATE SET
			profile = excluded.profile,
			fetched_at = excluded.fetched_at`,
		companyID, string(profileJSON), profile.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: set profile %s", companyID)
}

func (s *SQLiteStore) SetScore(ctx context.Context, companyID string, score model.ScoreResult) error {
	resultJSON, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal score")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO company_scores (company_id, total_score, label, result, scored_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(company_id) DO UPDATE SET
			total_score = excluded.total_score,
			label = excluded.label,
			result = excluded.result,
			scored_at = excluded.scored_at`,
		companyID, score.TotalScore, string(score.Label), string(resultJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set score %s", companyID)
}

func (s *SQLiteStore) GetScore(ctx context.Context, companyID string) (*model.ScoreResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM company_scores WHERE company_id = ?`, companyID,
	)
	var resultJSON string
	err := row.Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get score %s", companyID)
	}

	var sc model.ScoreResult
	if err := json.Unmarshal([]byte(resultJSON), &sc); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal score")
	}
	return &sc, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.RankedCompany, error) {
	query := `SELECT c.id, c.name, c.normalized_name, c.first_seen_at, c.last_seen_at,
		p.profile, s.result,
		(SELECT COUNT(*) FROM email_companies ec WHERE ec.company_id = c.id) AS mentions
	FROM companies c
	LEFT JOIN company_profiles p ON p.company_id = c.id
	LEFT JOIN company_scores s ON s.company_id = c.id
	WHERE 1=1`
	var args []any

	if filter.Label != "" {
		query += ` AND s.label = ?`
		args = append(args, string(filter.Label))
	}
	if filter.MinScore > 0 {
		query += ` AND s.total_score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY COALESCE(s.total_score, -1) DESC, mentions DESC, c.first_seen_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var out []model.RankedCompany
	for rows.Next() {
		rc, err := scanRankedCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, messageID, stage, errText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_failures (id, message_id, stage, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), messageID, stage, errText, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: record failure")
}

func (s *SQLiteStore) ListFailures(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, stage, error, created_at
		 FROM processing_failures ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list failures")
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.ID, &f.MessageID, &f.Stage, &f.Error, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list failures iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRankedCompany(row scannable) (*model.RankedCompany, error) {
	var rc model.RankedCompany
	var profileJSON, resultJSON sql.NullString

	err := row.Scan(&rc.Company.ID, &rc.Company.Name, &rc.Company.NormalizedName,
		&rc.Company.FirstSeenAt, &rc.Company.LastSeenAt,
		&profileJSON, &resultJSON, &rc.Mentions)
	if err != nil {
		return nil, eris.Wrap(err, "scan ranked company")
	}

	if profileJSON.Valid {
		rc.Profile = &model.CompanyProfile{}
		if err := json.Unmarshal([]byte(profileJSON.String), rc.Profile); err != nil {
			return nil, eris.Wrap(err, "unmarshal profile")
		}
	}
	if resultJSON.Valid {
		rc.Score = &model.ScoreResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), rc.Score); err != nil {
			return nil, eris.Wrap(err, "unmarshal score")
		}
	}
	return &rc, nil
}
