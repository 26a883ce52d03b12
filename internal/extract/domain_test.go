package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainToCompanyGuess(t *testing.T) {
	assert.Equal(t, "Adobe", domainToCompanyGuess("mail.adobe.com"))
	assert.Equal(t, "Openai", domainToCompanyGuess("email.openai.com"))
	assert.Equal(t, "Razorpay", domainToCompanyGuess("www.razorpay.com"))
	assert.Equal(t, "Acme Labs", domainToCompanyGuess("acme-labs.io"))
}

func TestDomainToCompanyGuess_GenericLabelFallsBackToSubdomain(t *testing.T) {
	// "bank" is not a company identifier; the last subdomain label is.
	assert.Equal(t, "Axis", domainToCompanyGuess("axis.bank.in"))
}

func TestDomainToCompanyGuess_TooShort(t *testing.T) {
	assert.Equal(t, "", domainToCompanyGuess("hq.io"))
	assert.Equal(t, "", domainToCompanyGuess(""))
}

func TestCollectDomains(t *testing.T) {
	body := "Apply at https://careers.acme.io/jobs and see http://www.globex.com.\n" +
		"Docs: https://docs.google.com/forms/d/xyz\n" +
		"Track: https://bit.ly/3abc"
	doms := collectDomains(body, "hr@acme.io")

	assert.Contains(t, doms, "careers.acme.io")
	assert.Contains(t, doms, "acme.io")
	// Google docs and shorteners are infrastructure, not companies.
	assert.NotContains(t, doms, "docs.google.com")
	assert.NotContains(t, doms, "bit.ly")
}

func TestCollectDomains_PersonalSenderSkipped(t *testing.T) {
	doms := collectDomains("", "someone@gmail.com")
	assert.Empty(t, doms)
}

func TestCollectDomains_Deterministic(t *testing.T) {
	body := "https://zeta.com https://alpha.com https://mid.org"
	first := collectDomains(body, "")
	second := collectDomains(body, "")
	assert.Equal(t, first, second)
}
