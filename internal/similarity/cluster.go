package similarity

import "unicode/utf8"

// Cluster groups near-duplicate names by greedy seed absorption: names
// are iterated in input order; a name already claimed by an earlier
// cluster is skipped; otherwise it seeds a new cluster and absorbs every
// later, still-unclaimed name whose ratio to the seed meets the
// threshold. Only clusters of two or more names are returned.
//
// Membership is tested against the seed only, not between members, so
// clustering is NOT transitive: B and C can both match A without
// matching each other and still share A's cluster. The goal is grouping
// near-duplicates for human review, not computing equivalence classes.
// Use ClusterTransitive for full closure.
func Cluster(scorer Scorer, names []string, threshold float64) [][]string {
	if scorer == nil {
		return nil
	}

	claimed := make(map[string]bool, len(names))
	var clusters [][]string

	for i, seed := range names {
		if claimed[seed] || utf8.RuneCountInString(seed) < MinNameLength {
			continue
		}
		cluster := []string{seed}
		for _, other := range names[i+1:] {
			if claimed[other] || other == seed || utf8.RuneCountInString(other) < MinNameLength {
				continue
			}
			if scorer.Ratio(seed, other) >= threshold {
				cluster = append(cluster, other)
				claimed[other] = true
			}
		}
		if len(cluster) > 1 {
			claimed[seed] = true
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}

// ClusterTransitive groups names by union-find over the full similarity
// graph: any chain of above-threshold pairs lands in one cluster.
// Slower (always all-pairs) and coarser than Cluster; offered for
// callers that want true equivalence classes.
func ClusterTransitive(scorer Scorer, names []string, threshold float64) [][]string {
	if scorer == nil {
		return nil
	}

	parent := make([]int, len(names))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(names); i++ {
		if utf8.RuneCountInString(names[i]) < MinNameLength {
			continue
		}
		for j := i + 1; j < len(names); j++ {
			if utf8.RuneCountInString(names[j]) < MinNameLength {
				continue
			}
			if scorer.Ratio(names[i], names[j]) >= threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]string)
	order := make([]int, 0, len(names))
	for i, name := range names {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], name)
	}

	var clusters [][]string
	for _, root := range order {
		if len(groups[root]) > 1 {
			clusters = append(clusters, groups[root])
		}
	}
	return clusters
}
