package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "traitsync/pkg/domain"
)

func TestDecodeEvent(t *testing.T) {
	tenant := id.NewTenantID()
	pid := id.NewProfileID()

	raw := []byte(`{
		"tenant_id": "` + tenant.String() + `",
		"profile": {
			"id": "` + pid.String() + `",
			"email": "jane@acme.com",
			"last_known_ip": "1.2.3.4",
			"traits": {"augur/fetched_at": "2024-05-01T12:00:00Z"}
		},
		"account": {"domain": "acme.com", "name": "Acme"},
		"segments": [{"id": "seg-1", "name": "Qualified"}],
		"account_segments": [{"id": "aseg-1", "name": "Target"}]
	}`)

	ev, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, tenant, ev.Tenant)
	assert.Equal(t, pid, ev.Profile.ID)
	assert.Equal(t, "jane@acme.com", ev.Profile.Email)
	assert.Equal(t, "1.2.3.4", ev.Profile.LastKnownIP)
	assert.Equal(t, "2024-05-01T12:00:00Z", ev.Profile.TraitString("augur/fetched_at"))
	require.NotNil(t, ev.Account)
	assert.Equal(t, "acme.com", ev.Account.Domain)
	require.Len(t, ev.Segments, 1)
	assert.Equal(t, "seg-1", ev.Segments[0].ID)
	require.Len(t, ev.AccountSegments, 1)
	assert.Equal(t, "aseg-1", ev.AccountSegments[0].ID)
}

func TestDecodeEventRejectsBadTenant(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"tenant_id": "nope", "profile": {"email": "a@b.c"}}`))
	require.Error(t, err)
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := DecodeEvent([]byte(`{`))
	require.Error(t, err)
}

func TestDecodeEventAnonymousProfile(t *testing.T) {
	tenant := id.NewTenantID()
	raw := []byte(`{
		"tenant_id": "` + tenant.String() + `",
		"profile": {"anonymous_id": "anon-1", "last_known_ip": "1.2.3.4"}
	}`)

	ev, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.True(t, ev.Profile.ID.IsNil())
	assert.Equal(t, "anon-1", ev.Profile.AnonymousID)
	assert.Nil(t, ev.Account)
}
