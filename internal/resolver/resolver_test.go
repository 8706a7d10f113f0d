package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidatesPlainName(t *testing.T) {
	got := Candidates("Aspect of the End")

	assert.Equal(t, []Candidate{
		{Key: "Aspect of the End"},
		{Key: "Aspect of the End", Fold: true},
	}, got)
}

func TestCandidatesUnderscoreName(t *testing.T) {
	got := Candidates("ENCHANTED_DIAMOND")

	assert.Equal(t, []Candidate{
		{Key: "ENCHANTED_DIAMOND"},
		{Key: "ENCHANTED DIAMOND"},
		{Key: "ENCHANTED_DIAMOND", Fold: true},
		{Key: "ENCHANTED DIAMOND", Fold: true},
	}, got)
}

func TestCandidatesEnchantmentKeyKeepsUnderscores(t *testing.T) {
	got := Candidates("ENCHANTMENT_ULTIMATE_WISE_5")

	assert.Equal(t, []Candidate{
		{Key: "ENCHANTMENT_ULTIMATE_WISE_5"},
		{Key: "ENCHANTMENT_ULTIMATE_WISE_5", Fold: true},
	}, got)
	for _, c := range got {
		assert.NotContains(t, c.Key, " ")
	}
}

func TestCandidatesOrderExactBeforeFold(t *testing.T) {
	got := Candidates("enchanted_diamond")

	assert.False(t, got[0].Fold)
	assert.True(t, got[len(got)-1].Fold)
}
