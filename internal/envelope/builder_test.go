package envelope

import (
	"testing"

	"callmap/internal/query"
	"callmap/internal/relocate"
)

func freshSCIPProvenance() *query.Provenance {
	return &query.Provenance{
		Providers: []query.ProviderUse{
			{Name: query.ProviderSCIP, Available: true, Used: true},
		},
		Workspace:    "/work",
		Completeness: query.Completeness{Score: 0.95, Reason: "fresh SCIP index"},
		IndexedAt:    "2026-08-01T10:00:00Z",
	}
}

func TestBuilderDefaults(t *testing.T) {
	resp := New().Data("payload").Build()

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %s", resp.SchemaVersion)
	}
	if resp.Meta.Confidence.Tier != TierHigh || resp.Meta.Confidence.Score != 1.0 {
		t.Errorf("Default confidence = %+v", resp.Meta.Confidence)
	}
	if resp.Data != "payload" {
		t.Errorf("Data = %v", resp.Data)
	}
	if resp.Error != nil {
		t.Errorf("Error = %v", *resp.Error)
	}
}

func TestFromProvenance(t *testing.T) {
	tests := []struct {
		name    string
		prov    *query.Provenance
		checkFn func(t *testing.T, resp *Response)
	}{
		{
			name: "fresh scip index",
			prov: freshSCIPProvenance(),
			checkFn: func(t *testing.T, resp *Response) {
				if resp.Meta.Confidence.Tier != TierHigh {
					t.Errorf("Tier = %s, want high", resp.Meta.Confidence.Tier)
				}
				if got := resp.Meta.Provenance.Providers; len(got) != 1 || got[0] != "scip" {
					t.Errorf("Providers = %v", got)
				}
				if resp.Meta.Freshness == nil || resp.Meta.Freshness.IndexAge.StaleReason != "" {
					t.Errorf("Freshness = %+v", resp.Meta.Freshness)
				}
				if resp.Meta.Provenance.Workspace != "/work" {
					t.Errorf("Workspace = %s", resp.Meta.Provenance.Workspace)
				}
			},
		},
		{
			name: "language server with index missing",
			prov: &query.Provenance{
				Providers: []query.ProviderUse{
					{Name: query.ProviderSCIP, Available: false, Used: false},
					{Name: query.ProviderLSP, Available: true, Used: true},
				},
				Completeness: query.Completeness{Score: 0.85, Reason: "language server: go"},
			},
			checkFn: func(t *testing.T, resp *Response) {
				if resp.Meta.Confidence.Tier != TierMedium {
					t.Errorf("Tier = %s, want medium", resp.Meta.Confidence.Tier)
				}
				factors := resp.Meta.Confidence.Factors
				if len(factors) != 2 {
					t.Fatalf("Factors = %+v, want 2", factors)
				}
				if factors[0].Factor != "scip" || factors[0].Status != "unavailable" || factors[0].Impact != -0.2 {
					t.Errorf("scip factor = %+v", factors[0])
				}
				if factors[1].Factor != "lsp" || factors[1].Status != "available" || factors[1].Impact != 0.1 {
					t.Errorf("lsp factor = %+v", factors[1])
				}
				if resp.Meta.Freshness != nil {
					t.Errorf("Freshness = %+v, want none without an index", resp.Meta.Freshness)
				}
			},
		},
		{
			name: "stale scip fallback",
			prov: &query.Provenance{
				Providers: []query.ProviderUse{
					{Name: query.ProviderSCIP, Available: true, Used: true},
					{Name: query.ProviderLSP, Available: false, Used: false},
				},
				Completeness: query.Completeness{Score: 0.75, Reason: "stale SCIP index"},
				IndexStale:   true,
				IndexedAt:    "2026-08-01T10:00:00Z",
				Warnings:     []string{"SCIP index is older than the source file"},
			},
			checkFn: func(t *testing.T, resp *Response) {
				if resp.Meta.Confidence.Tier != TierMedium {
					t.Errorf("Tier = %s, want medium", resp.Meta.Confidence.Tier)
				}
				if resp.Meta.Freshness == nil || resp.Meta.Freshness.IndexAge.StaleReason != StaleReasonSourceNewer {
					t.Errorf("Freshness = %+v", resp.Meta.Freshness)
				}
				if len(resp.Warnings) != 1 {
					t.Errorf("Warnings = %+v", resp.Warnings)
				}
				found := false
				for _, f := range resp.Meta.Confidence.Factors {
					if f.Factor == "scip_index" && f.Status == "stale" && f.Impact == -0.1 {
						found = true
					}
				}
				if !found {
					t.Errorf("Factors missing stale index entry: %+v", resp.Meta.Confidence.Factors)
				}
			},
		},
		{
			name: "tree-sitter extraction",
			prov: &query.Provenance{
				Providers: []query.ProviderUse{
					{Name: query.ProviderSCIP, Available: false, Used: false},
					{Name: query.ProviderLSP, Available: false, Used: false},
					{Name: query.ProviderTreeSitter, Available: true, Used: true},
				},
				Completeness: query.Completeness{Score: 0.5, Reason: "tree-sitter extraction"},
			},
			checkFn: func(t *testing.T, resp *Response) {
				if resp.Meta.Confidence.Tier != TierLow {
					t.Errorf("Tier = %s, want low", resp.Meta.Confidence.Tier)
				}
				if got := resp.Meta.Provenance.Providers; len(got) != 1 || got[0] != "treesitter" {
					t.Errorf("Providers = %v", got)
				}
			},
		},
		{
			name: "nil provenance keeps defaults",
			prov: nil,
			checkFn: func(t *testing.T, resp *Response) {
				if resp.Meta.Confidence.Tier != TierHigh {
					t.Errorf("Tier = %s, want high", resp.Meta.Confidence.Tier)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New().Data("x").FromProvenance(tt.prov).Build()
			tt.checkFn(t, resp)
		})
	}
}

func TestWithRelocationOverridesProviderTier(t *testing.T) {
	prov := &query.Provenance{
		Providers: []query.ProviderUse{
			{Name: query.ProviderTreeSitter, Available: true, Used: true},
		},
		Completeness: query.Completeness{Score: 0.5, Reason: "tree-sitter extraction"},
	}
	match := &relocate.Match{
		Name:       "add",
		Strategy:   relocate.StrategyContainerChild,
		Confidence: relocate.ConfidenceHigh,
	}

	resp := New().Data("x").FromProvenance(prov).WithRelocation(match).Build()

	if resp.Meta.Confidence.Tier != TierHigh {
		t.Errorf("Tier = %s, want high from the structural match", resp.Meta.Confidence.Tier)
	}
	if resp.Meta.Confidence.Score != 1.0 {
		t.Errorf("Score = %f, want 1.0", resp.Meta.Confidence.Score)
	}
	found := false
	for _, reason := range resp.Meta.Confidence.Reasons {
		if reason == "strategy: container-child" {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, missing strategy", resp.Meta.Confidence.Reasons)
	}
}

func TestWithRelocationSpeculative(t *testing.T) {
	match := &relocate.Match{
		Name:       "helper",
		Strategy:   relocate.StrategyStaleLine,
		Confidence: relocate.ConfidenceSpeculative,
	}
	resp := New().WithRelocation(match).Build()

	if resp.Meta.Confidence.Tier != TierSpeculative {
		t.Errorf("Tier = %s, want speculative", resp.Meta.Confidence.Tier)
	}
	if resp.Meta.Confidence.Score != 0.2 {
		t.Errorf("Score = %f, want 0.2", resp.Meta.Confidence.Score)
	}
}

func TestWithFreshnessDowngradesHighTier(t *testing.T) {
	resp := New().
		FromProvenance(freshSCIPProvenance()).
		WithFreshness("2026-08-01T10:00:00Z", StaleReasonSourceNewer).
		Build()

	if resp.Meta.Confidence.Tier != TierMedium {
		t.Errorf("Tier = %s, want downgraded medium", resp.Meta.Confidence.Tier)
	}
	found := false
	for _, reason := range resp.Meta.Confidence.Reasons {
		if reason == "index-stale" {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, missing index-stale", resp.Meta.Confidence.Reasons)
	}
}

func TestWithTruncation(t *testing.T) {
	resp := New().WithTruncation(false, 0, 0, "").Build()
	if resp.Meta.Truncation != nil {
		t.Errorf("Truncation = %+v, want nil when nothing was cut", resp.Meta.Truncation)
	}

	resp = New().WithTruncation(true, 100, 250, "node limit").Build()
	tr := resp.Meta.Truncation
	if tr == nil || !tr.IsTruncated || tr.Shown != 100 || tr.Total != 250 {
		t.Errorf("Truncation = %+v", tr)
	}
}

func TestSuggestCallAndWarnings(t *testing.T) {
	resp := New().
		SuggestCall("relocateSymbol", map[string]interface{}{"graphId": "g1"}, "source changed").
		WarningWithCode("INDEX_MISSING", "no SCIP index found").
		Warning("plain warning").
		Build()

	if len(resp.SuggestedNextCalls) != 1 || resp.SuggestedNextCalls[0].Tool != "relocateSymbol" {
		t.Errorf("SuggestedNextCalls = %+v", resp.SuggestedNextCalls)
	}
	if len(resp.Warnings) != 2 {
		t.Fatalf("Warnings = %+v", resp.Warnings)
	}
	if resp.Warnings[0].Code != "INDEX_MISSING" {
		t.Errorf("Warning code = %s", resp.Warnings[0].Code)
	}
	if resp.Warnings[1].Code != "" || resp.Warnings[1].Message != "plain warning" {
		t.Errorf("Warning = %+v", resp.Warnings[1])
	}
}

func TestErrorFloorsConfidence(t *testing.T) {
	resp := New().Error("graph not found: g9").Build()

	if resp.Error == nil || *resp.Error != "graph not found: g9" {
		t.Errorf("Error = %v", resp.Error)
	}
	if resp.Meta.Confidence.Tier != TierSpeculative || resp.Meta.Confidence.Score != 0 {
		t.Errorf("Confidence = %+v, want floored", resp.Meta.Confidence)
	}
}
