package similarity

import (
	"reflect"
	"testing"
)

func TestRatioBounds(t *testing.T) {
	s := Levenshtein{}
	cases := []struct{ a, b string }{
		{"ACME HOLDINGS", "ACME HOLDING"},
		{"ABC", "XYZ"},
		{"", ""},
		{"A", ""},
		{"SAME", "SAME"},
	}
	for _, c := range cases {
		r := s.Ratio(c.a, c.b)
		if r < 0 || r > 1 {
			t.Errorf("Ratio(%q, %q) = %v out of [0,1]", c.a, c.b, r)
		}
	}
	if r := s.Ratio("SAME", "SAME"); r != 1 {
		t.Errorf("identical strings should score 1, got %v", r)
	}
	if r := s.Ratio("ABC", "XYZ"); r != 0 {
		t.Errorf("fully dissimilar equal-length strings should score 0, got %v", r)
	}
}

func TestMatchSetsThreshold(t *testing.T) {
	s := Levenshtein{}
	a := []string{"ACME HOLDINGS", "ZETA SUPPLY"}
	b := []string{"ACME HOLDING", "UNRELATED NAME"}

	pairs := MatchSets(s, a, b, 0.85, 0)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %v", len(pairs), pairs)
	}
	if pairs[0].A != "ACME HOLDINGS" || pairs[0].B != "ACME HOLDING" {
		t.Errorf("unexpected pair %v", pairs[0])
	}
	if pairs[0].Ratio < 0.85 {
		t.Errorf("pair below threshold: %v", pairs[0].Ratio)
	}
}

func TestMatchSetsExcludesShortNames(t *testing.T) {
	s := Levenshtein{}
	pairs := MatchSets(s, []string{"AB"}, []string{"AB"}, 0.5, 0)
	if len(pairs) != 0 {
		t.Errorf("names shorter than %d must be excluded, got %v", MinNameLength, pairs)
	}

	// Two runes, six bytes. The length cut counts runes.
	pairs = MatchSets(s, []string{"商店"}, []string{"商店"}, 0.5, 0)
	if len(pairs) != 0 {
		t.Errorf("two-rune multibyte names must be excluded, got %v", pairs)
	}
}

func TestClusterExcludesShortMultibyteNames(t *testing.T) {
	s := Levenshtein{}
	clusters := Cluster(s, []string{"商店", "商店", "商店"}, 0.5)
	if len(clusters) != 0 {
		t.Errorf("two-rune multibyte names must not seed clusters, got %v", clusters)
	}
	clusters = ClusterTransitive(s, []string{"商店", "商店", "商店"}, 0.5)
	if len(clusters) != 0 {
		t.Errorf("two-rune multibyte names must not cluster transitively, got %v", clusters)
	}
}

func TestMatchSetsParallelOrderMatchesSequential(t *testing.T) {
	s := Levenshtein{}
	a := []string{"ACME HOLDINGS", "ACME HOLDING", "BETA WORKS", "BETA WORK", "GAMMA LLC"}
	b := []string{"ACME HOLDINGZ", "BETA WORKS", "GAMMA LL", "DELTA CORP"}

	seq := MatchSets(s, a, b, 0.8, 0)
	par := MatchSets(s, a, b, 0.8, 4)
	if !reflect.DeepEqual(seq, par) {
		t.Errorf("parallel result differs from sequential:\nseq=%v\npar=%v", seq, par)
	}
}

func TestMatchSetsNilScorer(t *testing.T) {
	if got := MatchSets(nil, []string{"AAA"}, []string{"AAA"}, 0.5, 0); got != nil {
		t.Errorf("nil scorer must yield nil, got %v", got)
	}
}

// fixedScorer pins exact ratios between specific pairs so cluster
// semantics can be tested independently of edit distance.
type fixedScorer struct {
	ratios map[[2]string]float64
}

func (f fixedScorer) Ratio(a, b string) float64 {
	if r, ok := f.ratios[[2]string{a, b}]; ok {
		return r
	}
	if r, ok := f.ratios[[2]string{b, a}]; ok {
		return r
	}
	return 0
}

func TestClusterGreedyNonTransitive(t *testing.T) {
	// B and C both match A but not each other; all three must land in
	// one cluster under greedy seed absorption.
	s := fixedScorer{ratios: map[[2]string]float64{
		{"AAA", "BBB"}: 0.9,
		{"AAA", "CCC"}: 0.9,
		{"BBB", "CCC"}: 0.1,
	}}

	clusters := Cluster(s, []string{"AAA", "BBB", "CCC"}, 0.85)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d: %v", len(clusters), clusters)
	}
	want := []string{"AAA", "BBB", "CCC"}
	if !reflect.DeepEqual(clusters[0], want) {
		t.Errorf("cluster = %v, want %v", clusters[0], want)
	}
}

func TestClusterFirstComeClaims(t *testing.T) {
	// Once claimed by an earlier cluster a name never joins another,
	// even if it also matches a later seed.
	s := fixedScorer{ratios: map[[2]string]float64{
		{"AAA", "BBB"}: 0.9,
		{"CCC", "BBB"}: 0.9,
		{"CCC", "DDD"}: 0.9,
	}}

	clusters := Cluster(s, []string{"AAA", "BBB", "CCC", "DDD"}, 0.85)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %v", clusters)
	}
	if !reflect.DeepEqual(clusters[0], []string{"AAA", "BBB"}) {
		t.Errorf("first cluster = %v", clusters[0])
	}
	if !reflect.DeepEqual(clusters[1], []string{"CCC", "DDD"}) {
		t.Errorf("second cluster = %v", clusters[1])
	}
}

func TestClusterTransitiveClosure(t *testing.T) {
	// A-B and B-C chains merge under transitive clustering even though
	// A and C do not match directly.
	s := fixedScorer{ratios: map[[2]string]float64{
		{"AAA", "BBB"}: 0.9,
		{"BBB", "CCC"}: 0.9,
	}}

	clusters := ClusterTransitive(s, []string{"AAA", "BBB", "CCC"}, 0.85)
	if len(clusters) != 1 || len(clusters[0]) != 3 {
		t.Fatalf("expected one 3-name cluster, got %v", clusters)
	}
}

func TestClusterSingletonsDropped(t *testing.T) {
	s := Levenshtein{}
	clusters := Cluster(s, []string{"COMPLETELY", "DIFFERENT", "NAMES"}, 0.95)
	if len(clusters) != 0 {
		t.Errorf("expected no clusters, got %v", clusters)
	}
}
