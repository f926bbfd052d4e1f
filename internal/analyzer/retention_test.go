package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepFirstPolicy(t *testing.T) {
	tests := []struct {
		name       string
		duplicates DuplicateMap
		drop       []RecordKey
		groups     []Group
	}{
		{
			name:       "empty map",
			duplicates: DuplicateMap{},
			drop:       []RecordKey{},
		},
		{
			name:       "mutual pair keeps lower ordinal",
			duplicates: DuplicateMap{0: {1}, 1: {0}},
			drop:       []RecordKey{1},
			groups:     []Group{{Kept: 0, Dropped: []RecordKey{1}}},
		},
		{
			name:       "two clusters",
			duplicates: DuplicateMap{2: {5}, 5: {2}, 3: {4, 7}, 4: {3, 7}, 7: {3, 4}},
			drop:       []RecordKey{4, 5, 7},
			groups: []Group{
				{Kept: 2, Dropped: []RecordKey{5}},
				{Kept: 3, Dropped: []RecordKey{4, 7}},
			},
		},
		{
			name:       "chain is one cluster",
			duplicates: DuplicateMap{0: {1}, 1: {0, 2}, 2: {1}},
			drop:       []RecordKey{1, 2},
			groups:     []Group{{Kept: 0, Dropped: []RecordKey{1, 2}}},
		},
		{
			name:       "one-sided entries still join the cluster",
			duplicates: DuplicateMap{6: {8}},
			drop:       []RecordKey{8},
			groups:     []Group{{Kept: 6, Dropped: []RecordKey{8}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := KeepFirstPolicy{}.Resolve(tt.duplicates)
			assert.Equal(t, tt.drop, resolution.Drop)
			assert.Equal(t, tt.groups, resolution.Groups)
		})
	}
}

func TestRetentionPolicies_DropSetGrowsWithCluster(t *testing.T) {
	star := DuplicateMap{1: {2, 3, 4}, 2: {1}, 3: {1}, 4: {1}}
	grown := DuplicateMap{0: {1}, 1: {0, 2, 3, 4}, 2: {1}, 3: {1}, 4: {1}}
	lengths := []int{1, 5, 2, 2, 2}

	policies := map[string]RetentionPolicy{
		"keep_first":   KeepFirstPolicy{},
		"keep_longest": KeepLongestPolicy{Lengths: lengths},
	}
	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			before := policy.Resolve(star)
			after := policy.Resolve(grown)

			assert.Len(t, before.Drop, 3)
			assert.GreaterOrEqual(t, len(after.Drop), len(before.Drop),
				"drop set shrank from %v to %v", before.Drop, after.Drop)
			require.Len(t, after.Groups, 1)
			assert.Len(t, after.Groups[0].Dropped, 4)
		})
	}
}

func TestKeepLongestPolicy(t *testing.T) {
	duplicates := DuplicateMap{0: {1, 2}, 1: {0, 2}, 2: {0, 1}}

	resolution := KeepLongestPolicy{Lengths: []int{3, 9, 9}}.Resolve(duplicates)

	// 1 and 2 tie on length; the lower ordinal wins
	assert.Equal(t, []RecordKey{0, 2}, resolution.Drop)
	require.Len(t, resolution.Groups, 1)
	assert.Equal(t, 1, resolution.Groups[0].Kept)
	assert.NotContains(t, resolution.Drop, 1)
}

func TestUnionPolicy(t *testing.T) {
	resolution := UnionPolicy{}.Resolve(DuplicateMap{0: {1}, 1: {0}, 3: {4}})

	assert.Equal(t, []RecordKey{0, 1, 4}, resolution.Drop)
	assert.Empty(t, resolution.Groups)
}

func TestFilterDropped(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, []string{"a", "c", "e"}, FilterDropped(items, []RecordKey{1, 3}))
	assert.Equal(t, items, FilterDropped(items, nil))
	assert.Empty(t, FilterDropped(items, []RecordKey{0, 1, 2, 3, 4}))
	assert.Equal(t, []string{"a"}, FilterDropped(items[:1], []RecordKey{7}))
}
