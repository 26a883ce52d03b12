package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/internal/extract"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/store"
)

func newTestProcessor(t *testing.T) (*Processor, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	resolver, err := extract.NewResolver(nil, false)
	require.NoError(t, err)

	p, err := NewProcessor(st, resolver)
	require.NoError(t, err)
	return p, st
}

func importEmail(t *testing.T, st *store.SQLiteStore, messageID, from, subject, body string) {
	t.Helper()
	_, _, err := st.InsertEmail(context.Background(), model.EmailMessage{
		MessageID: messageID,
		FromEmail: from,
		Subject:   subject,
		BodyText:  body,
	})
	require.NoError(t, err)
}

func TestProcessor_Run(t *testing.T) {
	p, st := newTestProcessor(t)
	ctx := context.Background()

	importEmail(t, st, "m1", "hr@razorpay.com", "Internship details", "Company: Razorpay\nStipend: 50k")
	importEmail(t, st, "m2", "alerts@hdfcbank.net", "Your OTP is 1234", "valid for 10 minutes")
	importEmail(t, st, "m3", "someone@gmail.com", "We are hiring interns", "Reply with your resume.")

	summary, err := p.Run(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Leads)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 1, summary.NoLead)
	assert.Zero(t, summary.Failed)

	company, err := st.GetCompany(ctx, "razorpay")
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Razorpay", company.Name)

	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 1, leads[0].Mentions)

	// Everything was marked processed; a second run is a no-op.
	summary, err = p.Run(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestProcessor_Run_MergesCompanyVariants(t *testing.T) {
	p, st := newTestProcessor(t)
	ctx := context.Background()

	importEmail(t, st, "m1", "hr@razorpay.com", "Internship details", "Company: Razorpay")
	importEmail(t, st, "m2", "talent@razorpay.com", "Hiring now", "Employer: Razorpay Pvt Ltd")

	summary, err := p.Run(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Leads)

	// Both emails fold into one company row under the identity key,
	// keeping the fuller display name.
	companies, err := st.ListCompanies(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Razorpay Pvt Ltd", companies[0].Name)

	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 2, leads[0].Mentions)
}

func TestProcessor_Run_HonorsLimit(t *testing.T) {
	p, st := newTestProcessor(t)
	ctx := context.Background()

	importEmail(t, st, "m1", "hr@a.com", "Internship at Acme", "Company: Acme Corp")
	importEmail(t, st, "m2", "hr@b.com", "Internship at Globex", "Company: Globex Inc")

	summary, err := p.Run(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)

	remaining, err := st.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestNewProcessor_Validation(t *testing.T) {
	resolver, err := extract.NewResolver(nil, false)
	require.NoError(t, err)

	_, err = NewProcessor(nil, resolver)
	assert.Error(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = NewProcessor(st, nil)
	assert.Error(t, err)
}
