package main

import (
	"strings"
	"testing"
	"time"

	"callmap/internal/envelope"
	"callmap/internal/graph"
	"callmap/internal/query"
	"callmap/internal/store"
)

func sampleGraph() *graph.Graph {
	return &graph.Graph{
		ID:        "g1",
		RootID:    "n1",
		Direction: graph.DirectionBoth,
		Depth:     2,
		Nodes: []*graph.Node{
			{ID: "n1", Label: "multiply", URI: "src/calc.py", Line: 39, Signature: "(a, b)"},
			{ID: "n2", Label: "main", URI: "src/app.py", Line: 3},
		},
		Edges:     []graph.Edge{{From: "n2", To: "n1"}},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatResponse_JSON(t *testing.T) {
	resp := envelope.Operational(&query.BuildGraphResult{Graph: sampleGraph()})

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"schemaVersion"`) {
		t.Error("JSON output missing envelope schema version")
	}
	if !strings.Contains(result, `"multiply"`) {
		t.Error("JSON output missing node label")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	resp := envelope.Operational(map[string]string{"key": "value"})

	_, err := FormatResponse(resp, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatHuman_Graph(t *testing.T) {
	resp := envelope.Operational(&query.BuildGraphResult{Graph: sampleGraph(), Saved: true})

	result, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "2 nodes, 1 edges") {
		t.Errorf("missing node/edge summary:\n%s", result)
	}
	if !strings.Contains(result, "* multiply(a, b)") {
		t.Errorf("root node should be marked and carry its signature:\n%s", result)
	}
	if !strings.Contains(result, "src/calc.py:40") {
		t.Errorf("node location should print one-based:\n%s", result)
	}
	if !strings.Contains(result, "main -> multiply") {
		t.Errorf("missing edge rendering:\n%s", result)
	}
	if !strings.Contains(result, "Saved as g1") {
		t.Errorf("missing save notice:\n%s", result)
	}
}

func TestFormatHuman_GraphList(t *testing.T) {
	metas := []store.GraphMeta{
		{
			ID:        "g1",
			RootLabel: "multiply",
			Direction: "both",
			Depth:     2,
			NodeCount: 5,
			EdgeCount: 4,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	result, err := FormatResponse(envelope.Operational(metas), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "1 stored graph(s)") {
		t.Errorf("missing count line:\n%s", result)
	}
	if !strings.Contains(result, "multiply") {
		t.Errorf("missing root label:\n%s", result)
	}
}

func TestFormatHuman_EmptyGraphList(t *testing.T) {
	result, err := FormatResponse(envelope.Operational([]store.GraphMeta{}), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "No stored graphs.") {
		t.Errorf("expected empty-list message, got:\n%s", result)
	}
}

func TestFormatHuman_Warnings(t *testing.T) {
	resp := envelope.New().
		Data([]store.GraphMeta{}).
		WarningWithCode("STALE_LINE_FALLBACK", "accepted stored line without verification").
		Build()

	result, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "[STALE_LINE_FALLBACK]") {
		t.Errorf("warning code should be visible:\n%s", result)
	}
}

func TestFormatHuman_UnknownDataFallsBackToJSON(t *testing.T) {
	resp := envelope.Operational(map[string]int{"answer": 42})

	result, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, `"answer": 42`) {
		t.Errorf("unknown payloads should render as JSON:\n%s", result)
	}
}
