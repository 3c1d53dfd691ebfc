package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"
)

func TestCorrelationTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", "traitsync", time.Hour)
	lookup := Lookup{Tenant: domain.NewTenantID(), Profile: domain.NewProfileID()}

	signed, err := svc.Generate(lookup)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	got, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, lookup.Tenant, got.Tenant)
	assert.Equal(t, lookup.Profile, got.Profile)
	assert.True(t, got.RelatedAccount.IsNil())
}

func TestCorrelationTokenCarriesRelatedAccount(t *testing.T) {
	svc := NewService("test-secret", "traitsync", time.Hour)
	lookup := Lookup{
		Tenant:         domain.NewTenantID(),
		Profile:        domain.NewProfileID(),
		RelatedAccount: domain.NewAccountID(),
	}

	signed, err := svc.Generate(lookup)
	require.NoError(t, err)

	got, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, lookup.RelatedAccount, got.RelatedAccount)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	svc := NewService("test-secret", "traitsync", time.Hour)
	other := NewService("other-secret", "traitsync", time.Hour)

	signed, err := other.Generate(Lookup{Tenant: domain.NewTenantID(), Profile: domain.NewProfileID()})
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", "traitsync", time.Hour)

	_, err := svc.Validate("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-secret", "traitsync", -time.Minute)

	signed, err := svc.Generate(Lookup{Tenant: domain.NewTenantID(), Profile: domain.NewProfileID()})
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
