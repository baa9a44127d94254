package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencivic-data/heron/internal/bus"
	"github.com/opencivic-data/heron/internal/cache"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/repository"
	"github.com/opencivic-data/heron/internal/rules"
)

func testServer(t *testing.T) (*Server, domain.Repository, domain.Cache, *bus.ChannelBus) {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "heron-api-*.db")
	if err != nil {
		t.Fatalf("temp db: %v", err)
	}
	tmpFile.Close()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpFile.Name(),
	})
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	reportCache := cache.NewLRUCache(100)

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		t.Fatalf("load builtin rules: %v", err)
	}

	cfg := domain.ServerConfig{Host: "127.0.0.1", Port: 0}
	server := NewServer(cfg, repo, reportCache, eventBus, engine, "test")
	return server, repo, reportCache, eventBus
}

func doRequest(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	server, _, _, _ := testServer(t)

	t.Run("Health", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp["status"] != "healthy" {
			t.Errorf("status = %s", resp["status"])
		}
		if resp["version"] != "test" {
			t.Errorf("version = %s", resp["version"])
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/ready", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestCreateAnalysis(t *testing.T) {
	server, repo, _, eventBus := testServer(t)
	ctx := context.Background()

	var requests atomic.Int32
	eventBus.Subscribe(ctx, domain.TopicAnalysisRequested, func(ctx context.Context, msg *domain.Message) error {
		var req domain.AnalysisRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			t.Errorf("request payload: %v", err)
		}
		requests.Add(1)
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	t.Run("Accepted", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/v1/analyses", CreateAnalysisRequest{
			LicensesPath:  "licenses.csv",
			ContractsPath: "contracts.csv",
			TaxesPath:     "taxes.csv",
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp CreateAnalysisResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.RunID == "" {
			t.Fatal("expected runId")
		}
		if resp.Status != domain.RunStatusPending {
			t.Errorf("status = %s", resp.Status)
		}

		run, err := repo.GetRun(ctx, resp.RunID)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if run.Status != domain.RunStatusPending {
			t.Errorf("persisted status = %s", run.Status)
		}
		if run.LicensesPath != "licenses.csv" {
			t.Errorf("paths lost: %+v", run)
		}

		deadline := time.Now().Add(time.Second)
		for requests.Load() == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if requests.Load() != 1 {
			t.Errorf("expected 1 bus request, got %d", requests.Load())
		}
	})

	t.Run("MissingPaths", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/v1/analyses", CreateAnalysisRequest{
			LicensesPath: "licenses.csv",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestGetAnalysis(t *testing.T) {
	server, repo, _, _ := testServer(t)
	ctx := context.Background()

	run := &domain.AnalysisRun{
		ID:           "run-api-1",
		Status:       domain.RunStatusCompleted,
		LicensesPath: "licenses.csv",
		StartedAt:    time.Now().UTC(),
		CompletedAt:  time.Now().UTC(),
		FindingCount: 7,
	}
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	t.Run("Found", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses/run-api-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var got domain.AnalysisRun
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != "run-api-1" || got.FindingCount != 7 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses?limit=10", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Runs  []domain.AnalysisRun `json:"runs"`
			Count int                  `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Count != 1 || len(resp.Runs) != 1 {
			t.Errorf("count = %d", resp.Count)
		}
	})

	t.Run("ListBadLimit", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses?limit=abc", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestGetReport(t *testing.T) {
	server, repo, reportCache, _ := testServer(t)
	ctx := context.Background()

	rep := &domain.Report{
		RunID:       "run-rep-1",
		GeneratedAt: time.Now().UTC(),
		KeyFindings: []domain.KeyFinding{
			{Category: "Address Clustering", Finding: "3 addresses shared", Significance: domain.SignificanceHigh, Action: "Verify"},
		},
	}
	rep.DatasetSummary.Licenses.TotalRecords = 12
	if err := repo.SaveReport(ctx, rep); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	t.Run("JSONFromRepository", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses/run-rep-1/report", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got domain.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.DatasetSummary.Licenses.TotalRecords != 12 {
			t.Errorf("summary lost: %+v", got.DatasetSummary)
		}

		// Repository hit populates the cache.
		cached, err := reportCache.GetReport(ctx, "run-rep-1")
		if err != nil || cached == nil {
			t.Errorf("expected report cached after read, got %v, %v", cached, err)
		}
	})

	t.Run("TextFormat", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses/run-rep-1/report?format=text", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("content type = %s", ct)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "CROSS-DATASET PATTERN ANALYSIS REPORT") {
			t.Error("missing report title")
		}
		if !strings.Contains(body, "3 addresses shared") {
			t.Error("missing key finding")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/analyses/nope/report", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestGetFindings(t *testing.T) {
	server, repo, _, _ := testServer(t)
	ctx := context.Background()

	run := &domain.AnalysisRun{
		ID:        "run-f-1",
		Status:    domain.RunStatusCompleted,
		StartedAt: time.Now().UTC(),
	}
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	findings := []domain.Finding{
		{ID: "f-1", PatternType: domain.PatternAddressClustering, Subject: "100 MAIN ST", Metric: 4, RiskScore: 1.0, Narrative: "4 licenses at one address."},
	}
	if err := repo.SaveFindings(ctx, "run-f-1", findings); err != nil {
		t.Fatalf("SaveFindings: %v", err)
	}

	rec := doRequest(t, server, http.MethodGet, "/v1/analyses/run-f-1/findings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		RunID    string           `json:"runId"`
		Findings []domain.Finding `json:"findings"`
		Count    int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || resp.Findings[0].Subject != "100 MAIN ST" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRuleEndpoints(t *testing.T) {
	server, _, _, _ := testServer(t)

	t.Run("ListBuiltins", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/rules", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Rules []domain.KeyFindingRule `json:"rules"`
			Count int                     `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Count != 6 {
			t.Errorf("expected 6 builtin rules, got %d", resp.Count)
		}
	})

	t.Run("GetRule", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/v1/rules/shared-addresses", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		rec = doRequest(t, server, http.MethodGet, "/v1/rules/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("CreateRule", func(t *testing.T) {
		lower := 100000.0
		rec := doRequest(t, server, http.MethodPost, "/v1/rules", CreateRuleRequest{
			ID:         "big-tax-roll",
			Category:   "Tax Delinquency",
			Expression: "totalTaxDue",
			Finding:    "$%s in outstanding property taxes across the roll",
			Action:     "Prioritize collection review",
			Bands:      []domain.RuleBand{{LowerLimit: &lower, Significance: domain.SignificanceHigh}},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		list := doRequest(t, server, http.MethodGet, "/v1/rules", nil)
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Count != 7 {
			t.Errorf("expected 7 rules after create, got %d", resp.Count)
		}
	})

	t.Run("CreateRuleBadExpression", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/v1/rules", CreateRuleRequest{
			ID:         "broken",
			Category:   "Test",
			Expression: "noSuchVariable + ",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("CreateRuleMissingFields", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/v1/rules", CreateRuleRequest{ID: "x"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}
