package score

import (
	"testing"

	"github.com/opencivic-data/heron/internal/domain"
)

func TestRankBounds(t *testing.T) {
	findings := []domain.Finding{
		{Subject: "a", Metric: 2},
		{Subject: "b", Metric: 8},
		{Subject: "c", Metric: 4},
	}

	ranked := Rank(findings)

	if ranked[0].RiskScore != 1.0 {
		t.Errorf("top finding must score 1.0, got %v", ranked[0].RiskScore)
	}
	if ranked[0].Subject != "b" {
		t.Errorf("expected b first, got %s", ranked[0].Subject)
	}
	for _, f := range ranked {
		if f.RiskScore < 0 || f.RiskScore > 1 {
			t.Errorf("score out of bounds: %v", f.RiskScore)
		}
	}
	if ranked[1].RiskScore != 0.5 || ranked[2].RiskScore != 0.25 {
		t.Errorf("unexpected normalized scores: %v %v", ranked[1].RiskScore, ranked[2].RiskScore)
	}
}

func TestRankStableTies(t *testing.T) {
	findings := []domain.Finding{
		{Subject: "first", Metric: 5},
		{Subject: "second", Metric: 5},
		{Subject: "third", Metric: 5},
	}

	ranked := Rank(findings)
	order := []string{"first", "second", "third"}
	for i, want := range order {
		if ranked[i].Subject != want {
			t.Errorf("tie order broken at %d: got %s, want %s", i, ranked[i].Subject, want)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("empty in, empty out; got %v", got)
	}
}

func TestTop(t *testing.T) {
	findings := []domain.Finding{{Subject: "a"}, {Subject: "b"}, {Subject: "c"}}
	if got := Top(findings, 2); len(got) != 2 || got[1].Subject != "b" {
		t.Errorf("Top(2) = %v", got)
	}
	if got := Top(findings, 10); len(got) != 3 {
		t.Errorf("Top beyond length must return all, got %d", len(got))
	}
}

func TestMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{12345.67, "$12,345.67"},
		{0, "$0.00"},
		{999, "$999.00"},
		{1000000, "$1,000,000.00"},
		{-2500.5, "-$2,500.50"},
	}
	for _, c := range cases {
		if got := Money(c.in); got != c.want {
			t.Errorf("Money(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCount(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, c := range cases {
		if got := Count(c.in); got != c.want {
			t.Errorf("Count(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPct(t *testing.T) {
	if got := Pct(0.856); got != "85.6%" {
		t.Errorf("Pct = %q", got)
	}
}
