package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyTrait_MergePolicy(t *testing.T) {
	t.Run("overwrite replaces namespaced values", func(t *testing.T) {
		p := &Profile{Traits: map[string]any{KeyDomain: "old.com"}}
		changed := p.ApplyTrait(KeyDomain, Trait{Value: "new.com", Policy: Overwrite})
		assert.True(t, changed)
		assert.Equal(t, "new.com", p.TraitString(KeyDomain))
	})

	t.Run("preserve existing never touches a set top-level field", func(t *testing.T) {
		p := &Profile{Name: "Ada Lovelace"}
		changed := p.ApplyTrait("name", Trait{Value: "Acme Employee", Policy: PreserveExisting})
		assert.False(t, changed)
		assert.Equal(t, "Ada Lovelace", p.Name)
	})

	t.Run("preserve existing fills an empty top-level field", func(t *testing.T) {
		p := &Profile{}
		changed := p.ApplyTrait("first_name", Trait{Value: "Ada", Policy: PreserveExisting})
		assert.True(t, changed)
		assert.Equal(t, "Ada", p.FirstName)
	})

	t.Run("preserve existing keeps the first marker timestamp", func(t *testing.T) {
		first := Timestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		second := Timestamp(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		p := &Profile{}
		assert.True(t, p.ApplyTrait(KeyEnrichedAt, Trait{Value: first, Policy: PreserveExisting}))
		assert.False(t, p.ApplyTrait(KeyEnrichedAt, Trait{Value: second, Policy: PreserveExisting}))
		assert.Equal(t, first, p.TraitString(KeyEnrichedAt))
	})
}

func TestApplyTrait_MirroredFieldRoundTrip(t *testing.T) {
	// Writing twice with different provider values must change only the
	// namespaced field; the mirrored top-level field keeps its first value.
	p := &Profile{}

	first := TraitSet{}
	first.Set(CompanyNamespace+"/name", "Acme Inc")
	first.SetIfEmpty("name", "Acme Inc")
	for k, tr := range first {
		p.ApplyTrait(k, tr)
	}

	second := TraitSet{}
	second.Set(CompanyNamespace+"/name", "Acme Corporation")
	second.SetIfEmpty("name", "Acme Corporation")
	for k, tr := range second {
		p.ApplyTrait(k, tr)
	}

	assert.Equal(t, "Acme Corporation", p.TraitString(CompanyNamespace+"/name"))
	assert.Equal(t, "Acme Inc", p.Name)
}

func TestTraitSet_DropsEmptyValues(t *testing.T) {
	ts := TraitSet{}
	ts.Set("augur/bio", nil)
	ts.Set("augur/site", "")
	ts.SetIfEmpty("name", "")
	ts.Set("augur/followers", 0) // zero ints are real values
	assert.Len(t, ts, 1)
	assert.Contains(t, ts, "augur/followers")
}

func TestParseTimestamp(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	assert.Equal(t, now, ParseTimestamp(Timestamp(now)))
	assert.Equal(t, now, ParseTimestamp(now))
	assert.True(t, ParseTimestamp("not-a-time").IsZero())
	assert.True(t, ParseTimestamp(nil).IsZero())
}
