package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pod2social/internal/config"
)

func testAllowList() map[string][]config.Group {
	return map[string][]config.Group{
		"technology": {
			{Name: "r/techpodcasts", PromoAllowed: true},
			{Name: "r/technology", PromoAllowed: false},
		},
		"startups": {
			{Name: "r/EntrepreneurRideAlong", PromoAllowed: true},
			{Name: "IndieBiz", PromoAllowed: true},
		},
	}
}

func TestFilterGroupsIntersectsWithAllowList(t *testing.T) {
	got := FilterGroups(
		[]string{"r/techpodcasts", "r/technology", "r/notlisted"},
		testAllowList(), 3)
	assert.Equal(t, []string{"r/techpodcasts"}, got)
}

func TestFilterGroupsCaseAndPrefixInsensitive(t *testing.T) {
	got := FilterGroups(
		[]string{"TechPodcasts", "r/indiebiz"},
		testAllowList(), 3)
	assert.Equal(t, []string{"r/techpodcasts", "r/indiebiz"}, got)
}

func TestFilterGroupsCap(t *testing.T) {
	got := FilterGroups(
		[]string{"r/techpodcasts", "r/EntrepreneurRideAlong", "r/indiebiz"},
		testAllowList(), 2)
	assert.Len(t, got, 2)
}

func TestFilterGroupsDropsDuplicates(t *testing.T) {
	got := FilterGroups(
		[]string{"r/techpodcasts", "techpodcasts", "R/TECHPODCASTS"},
		testAllowList(), 3)
	assert.Equal(t, []string{"r/techpodcasts"}, got)
}

func TestFilterGroupsEmptySuggestions(t *testing.T) {
	assert.Empty(t, FilterGroups(nil, testAllowList(), 3))
}
