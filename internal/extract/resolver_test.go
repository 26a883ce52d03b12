package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/internal/model"
)

func TestNewResolver_EscalationRequiresAgent(t *testing.T) {
	_, err := NewResolver(nil, true)
	assert.Error(t, err)

	r, err := NewResolver(nil, false)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestResolve_RejectedEmailNeverCallsModel(t *testing.T) {
	client := &countingClient{}
	r, err := NewResolver(newTestAgent(t, client), true)
	require.NoError(t, err)

	res := r.Resolve(context.Background(), "Your OTP is 445566", "use it within 10 minutes", "alerts@hdfcbank.net")

	assert.False(t, res.IsLead)
	assert.Equal(t, model.SourceNone, res.Source)
	assert.Zero(t, client.calls)
}

func TestResolve_ConfidentHeuristicSkipsModel(t *testing.T) {
	client := &countingClient{}
	r, err := NewResolver(newTestAgent(t, client), true)
	require.NoError(t, err)

	res := r.Resolve(context.Background(),
		"Internship details",
		"Company: Razorpay\nStipend: 50k/month",
		"hr@razorpay.com",
	)

	assert.True(t, res.IsLead)
	assert.Equal(t, "Razorpay", res.CompanyName)
	assert.Equal(t, "razorpay", res.NormalizedName)
	assert.Equal(t, "body_pattern:0", res.Source)
	assert.Zero(t, client.calls, "confident heuristic must not invoke the model")
}

func TestResolve_WeakHeuristicEscalates(t *testing.T) {
	client := &countingClient{response: `{
		"is_lead": true,
		"company_name": "Initech Pvt Ltd",
		"company_domain": "initech.com",
		"role_title": "Backend Intern",
		"location": "Pune",
		"source_links": ["https://initech.com/careers"],
		"confidence": 0.88
	}`}
	r, err := NewResolver(newTestAgent(t, client), true)
	require.NoError(t, err)

	// No extractable candidates: personal sender, no labels, no links.
	res := r.Resolve(context.Background(),
		"We are hiring interns",
		"Reply with your resume to apply.",
		"someone@gmail.com",
	)

	assert.Equal(t, 1, client.calls)
	assert.True(t, res.IsLead)
	assert.Equal(t, "Initech Pvt Ltd", res.CompanyName)
	assert.Equal(t, "initech", res.NormalizedName)
	assert.Equal(t, "Backend Intern", res.RoleTitle)
	assert.Equal(t, model.SourceLLM, res.Source)
	// The classifier's verdict survives the swap.
	assert.Contains(t, res.Reason, "primary:")
}

func TestResolve_EscalationDisabledKeepsHeuristic(t *testing.T) {
	client := &countingClient{response: `{"is_lead": true, "company_name": "Initech", "confidence": 0.9}`}
	r, err := NewResolver(newTestAgent(t, client), false)
	require.NoError(t, err)

	res := r.Resolve(context.Background(),
		"We are hiring interns",
		"Reply with your resume to apply.",
		"someone@gmail.com",
	)

	assert.True(t, res.IsLead)
	assert.Empty(t, res.CompanyName)
	assert.Zero(t, client.calls)
}

func TestResolve_TransportErrorDegradesToHeuristic(t *testing.T) {
	client := &countingClient{err: eris.New("502 upstream")}
	r, err := NewResolver(newTestAgent(t, client), true)
	require.NoError(t, err)

	// Domain-only candidate sits at the confidence floor, below the
	// escalation threshold.
	res := r.Resolve(context.Background(),
		"We are hiring interns",
		"Apply at https://globex.com/jobs",
		"someone@gmail.com",
	)

	assert.Equal(t, 1, client.calls)
	assert.True(t, res.IsLead)
	assert.Equal(t, "Globex", res.CompanyName)
	assert.Contains(t, res.Source, "domain:")
}

func TestResolve_ModelNonLeadKeepsHeuristic(t *testing.T) {
	client := &countingClient{response: `{"is_lead": false, "company_name": null, "confidence": 0.3}`}
	r, err := NewResolver(newTestAgent(t, client), true)
	require.NoError(t, err)

	res := r.Resolve(context.Background(),
		"We are hiring interns",
		"Apply at https://globex.com/jobs",
		"someone@gmail.com",
	)

	assert.Equal(t, 1, client.calls)
	assert.True(t, res.IsLead)
	assert.Equal(t, "Globex", res.CompanyName)
}

func TestResolve_ModelGarbageKeepsHeuristic(t *testing.T) {
	client := &countingClient{response: "sure, sounds like a great company!"}
	r, err := NewResolver(newTestAgent(t, client), true)
	require.NoError(t, err)

	res := r.Resolve(context.Background(),
		"We are hiring interns",
		"Apply at https://globex.com/jobs",
		"someone@gmail.com",
	)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "Globex", res.CompanyName)
}
