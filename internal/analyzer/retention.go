package analyzer

import (
	"sort"
)

// Group is a surviving record and the records dropped in its favour
type Group struct {
	Kept    RecordKey
	Dropped []RecordKey
}

// Resolution is the output of a retention policy
type Resolution struct {
	// Drop is the sorted set of records to remove
	Drop   []RecordKey
	Groups []Group
}

// RetentionPolicy decides which members of each duplicate cluster survive.
// The engine only supplies the duplicate graph; callers needing another
// rule implement this interface.
type RetentionPolicy interface {
	Resolve(duplicates DuplicateMap) *Resolution
}

// KeepFirstPolicy keeps the lowest ordinal of every connected cluster of
// duplicates and drops every other member.
type KeepFirstPolicy struct{}

// Resolve implements RetentionPolicy
func (KeepFirstPolicy) Resolve(duplicates DuplicateMap) *Resolution {
	return componentResolve(duplicates, func(a, b RecordKey) bool { return a < b })
}

// KeepLongestPolicy keeps the record with the longest text in each
// connected cluster, breaking ties by lower ordinal.
type KeepLongestPolicy struct {
	// Lengths holds the text length of every record, by ordinal
	Lengths []int
}

// Resolve implements RetentionPolicy
func (p KeepLongestPolicy) Resolve(duplicates DuplicateMap) *Resolution {
	length := func(k RecordKey) int {
		if k >= 0 && k < len(p.Lengths) {
			return p.Lengths[k]
		}
		return 0
	}
	return componentResolve(duplicates, func(a, b RecordKey) bool {
		if la, lb := length(a), length(b); la != lb {
			return la > lb
		}
		return a < b
	})
}

// UnionPolicy drops every record that appears as anyone's duplicate. On a
// symmetric map this removes every member of a cluster, so no record
// survives and no groups are reported.
type UnionPolicy struct{}

// Resolve implements RetentionPolicy
func (UnionPolicy) Resolve(duplicates DuplicateMap) *Resolution {
	set := make(map[RecordKey]struct{})
	for _, vs := range duplicates {
		for _, v := range vs {
			set[v] = struct{}{}
		}
	}
	drop := make([]RecordKey, 0, len(set))
	for k := range set {
		drop = append(drop, k)
	}
	sort.Ints(drop)
	return &Resolution{Drop: drop}
}

// componentResolve groups records into the connected components of the
// duplicate graph, keeps the member that sorts first under before and
// drops the rest. The drop set only grows as records join a component.
func componentResolve(duplicates DuplicateMap, before func(a, b RecordKey) bool) *Resolution {
	parent := make(map[RecordKey]RecordKey, len(duplicates))
	var find func(RecordKey) RecordKey
	find = func(x RecordKey) RecordKey {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b RecordKey) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for k, vs := range duplicates {
		if _, ok := parent[k]; !ok {
			parent[k] = k
		}
		for _, v := range vs {
			if _, ok := parent[v]; !ok {
				parent[v] = v
			}
		}
	}
	for k, vs := range duplicates {
		for _, v := range vs {
			union(k, v)
		}
	}

	components := make(map[RecordKey][]RecordKey)
	for k := range parent {
		r := find(k)
		components[r] = append(components[r], k)
	}

	drop := make([]RecordKey, 0, len(parent))
	groups := make([]Group, 0, len(components))
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return before(members[i], members[j]) })
		dropped := append([]RecordKey(nil), members[1:]...)
		sort.Ints(dropped)
		drop = append(drop, dropped...)
		groups = append(groups, Group{Kept: members[0], Dropped: dropped})
	}

	sort.Ints(drop)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Kept < groups[j].Kept })
	if len(groups) == 0 {
		groups = nil
	}
	return &Resolution{Drop: drop, Groups: groups}
}

// FilterDropped returns items whose ordinal is not in the sorted drop set,
// preserving relative order.
func FilterDropped[T any](items []T, drop []RecordKey) []T {
	kept := make([]T, 0, len(items))
	j := 0
	for i, item := range items {
		for j < len(drop) && drop[j] < i {
			j++
		}
		if j < len(drop) && drop[j] == i {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}
