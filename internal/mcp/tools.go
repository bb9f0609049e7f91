package mcp

import (
	"callmap/internal/envelope"
	"callmap/internal/errors"
	"callmap/internal/lsp"
	"callmap/internal/query"
)

// Tool is one callmap tool exposed over MCP.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler runs one tool call and returns an envelope response.
type ToolHandler func(params map[string]interface{}) (*envelope.Response, error)

// positionProperties is the shared schema fragment for tools addressed
// by source position. Lines and columns are 1-based on the wire, the
// way editors display them.
func positionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Source file, absolute or relative to the workspace root",
		},
		"line": map[string]interface{}{
			"type":        "number",
			"description": "1-based line of the symbol",
		},
		"column": map[string]interface{}{
			"type":        "number",
			"description": "1-based column of the symbol",
		},
	}
}

// ToolDefinitions returns every tool this server exposes.
func (s *Server) ToolDefinitions() []Tool {
	buildProps := positionProperties()
	buildProps["direction"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"both", "callers", "callees"},
		"default":     "both",
		"description": "Which way to expand the graph from the root symbol",
	}
	buildProps["depth"] = map[string]interface{}{
		"type":        "number",
		"default":     2,
		"description": "Expansion depth, 1 to 4",
	}
	buildProps["save"] = map[string]interface{}{
		"type":        "boolean",
		"default":     false,
		"description": "Persist the graph and fingerprint its source files",
	}

	return []Tool{
		{
			Name:        "buildCallGraph",
			Description: "Build a call graph from the symbol at a source position, expanding callers and/or callees to a bounded depth",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": buildProps,
				"required":   []string{"path", "line", "column"},
			},
		},
		{
			Name:        "getSignature",
			Description: "Resolve the symbol at a source position and return its normalized signature",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": positionProperties(),
				"required":   []string{"path", "line", "column"},
			},
		},
		{
			Name:        "relocateSymbol",
			Description: "Re-find a stored graph node in the current source after edits moved or renamed it",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"graphId": map[string]interface{}{
						"type":        "string",
						"description": "ID of a stored graph",
					},
					"node": map[string]interface{}{
						"type":        "string",
						"description": "Node ID or node label within the graph",
					},
				},
				"required": []string{"graphId", "node"},
			},
		},
		{
			Name:        "listGraphs",
			Description: "List stored call graphs, newest first",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "getGraph",
			Description: "Load a stored call graph with any node statuses recorded by relocations",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"graphId": map[string]interface{}{
						"type":        "string",
						"description": "ID of a stored graph",
					},
				},
				"required": []string{"graphId"},
			},
		},
		{
			Name:        "deleteGraph",
			Description: "Delete a stored call graph and its fingerprints",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"graphId": map[string]interface{}{
						"type":        "string",
						"description": "ID of a stored graph",
					},
				},
				"required": []string{"graphId"},
			},
		},
		{
			Name:        "listServers",
			Description: "List registered language servers with install and run state",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "getStatus",
			Description: "Report provider availability, running language servers, and graph store contents",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "listWorkspaces",
			Description: "List registered workspaces and which one is active",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "switchWorkspace",
			Description: "Switch the active workspace; later tool calls run against it",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Name of a registered workspace",
					},
				},
				"required": []string{"name"},
			},
		},
	}
}

func (s *Server) registerTools() {
	s.tools["buildCallGraph"] = s.toolBuildCallGraph
	s.tools["getSignature"] = s.toolGetSignature
	s.tools["relocateSymbol"] = s.toolRelocateSymbol
	s.tools["listGraphs"] = s.toolListGraphs
	s.tools["getGraph"] = s.toolGetGraph
	s.tools["deleteGraph"] = s.toolDeleteGraph
	s.tools["listServers"] = s.toolListServers
	s.tools["getStatus"] = s.toolGetStatus
	s.tools["listWorkspaces"] = s.toolListWorkspaces
	s.tools["switchWorkspace"] = s.toolSwitchWorkspace
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", errors.New(errors.InvalidParameter, "missing or invalid '"+name+"' parameter")
	}
	return v, nil
}

// positionParams extracts the 1-based line and column parameters and
// converts them to the zero-based positions used internally.
func positionParams(params map[string]interface{}) (lsp.Position, error) {
	line, ok := params["line"].(float64)
	if !ok || line < 1 {
		return lsp.Position{}, errors.New(errors.InvalidParameter, "missing or invalid 'line' parameter (1-based)")
	}
	column, ok := params["column"].(float64)
	if !ok || column < 1 {
		return lsp.Position{}, errors.New(errors.InvalidParameter, "missing or invalid 'column' parameter (1-based)")
	}
	return lsp.Position{Line: int(line) - 1, Character: int(column) - 1}, nil
}

func (s *Server) toolBuildCallGraph(params map[string]interface{}) (*envelope.Response, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	pos, err := positionParams(params)
	if err != nil {
		return nil, err
	}
	direction, _ := params["direction"].(string)
	depth := 0
	if v, ok := params["depth"].(float64); ok {
		depth = int(v)
	}
	save, _ := params["save"].(bool)

	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext()
	defer cancel()

	result, err := engine.BuildGraph(ctx, query.BuildGraphRequest{
		Path:      path,
		Position:  pos,
		Direction: direction,
		Depth:     depth,
		Save:      save,
	})
	if err != nil {
		return nil, err
	}

	b := envelope.New().Data(result).FromProvenance(result.Provenance)
	if result.Graph.Truncated {
		b.WithTruncation(true, len(result.Graph.Nodes), 0, "node budget reached")
	}
	if result.Saved {
		b.SuggestCall("relocateSymbol",
			map[string]interface{}{"graphId": result.Graph.ID},
			"re-resolve stored nodes after editing their sources")
	}
	return b.Build(), nil
}

func (s *Server) toolGetSignature(params map[string]interface{}) (*envelope.Response, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	pos, err := positionParams(params)
	if err != nil {
		return nil, err
	}

	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext()
	defer cancel()

	result, err := engine.Signature(ctx, query.SignatureRequest{Path: path, Position: pos})
	if err != nil {
		return nil, err
	}

	b := envelope.New().Data(result).FromProvenance(result.Provenance)
	if result.Signature == "" {
		b.Warning("no signature detected for " + result.Name)
	}
	return b.Build(), nil
}

func (s *Server) toolRelocateSymbol(params map[string]interface{}) (*envelope.Response, error) {
	graphID, err := stringParam(params, "graphId")
	if err != nil {
		return nil, err
	}
	node, err := stringParam(params, "node")
	if err != nil {
		return nil, err
	}

	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext()
	defer cancel()

	result, err := engine.Relocate(ctx, query.RelocateRequest{GraphID: graphID, Node: node})
	if err != nil {
		return nil, err
	}

	b := envelope.New().Data(result).FromProvenance(result.Provenance)
	if !result.Skipped {
		b.WithRelocation(result.Match)
	}
	return b.Build(), nil
}

func (s *Server) toolListGraphs(params map[string]interface{}) (*envelope.Response, error) {
	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	metas, err := engine.ListGraphs()
	if err != nil {
		return nil, err
	}
	return envelope.Operational(map[string]interface{}{
		"graphs": metas,
		"count":  len(metas),
	}), nil
}

func (s *Server) toolGetGraph(params map[string]interface{}) (*envelope.Response, error) {
	graphID, err := stringParam(params, "graphId")
	if err != nil {
		return nil, err
	}
	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	result, err := engine.GetGraph(graphID)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(result), nil
}

func (s *Server) toolDeleteGraph(params map[string]interface{}) (*envelope.Response, error) {
	graphID, err := stringParam(params, "graphId")
	if err != nil {
		return nil, err
	}
	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	if err := engine.DeleteGraph(graphID); err != nil {
		return nil, err
	}
	return envelope.Operational(map[string]interface{}{
		"deleted": graphID,
	}), nil
}

func (s *Server) toolListServers(params map[string]interface{}) (*envelope.Response, error) {
	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	servers := engine.Servers()
	return envelope.Operational(map[string]interface{}{
		"servers": servers,
		"count":   len(servers),
	}), nil
}

func (s *Server) toolGetStatus(params map[string]interface{}) (*envelope.Response, error) {
	engine, err := s.currentEngine()
	if err != nil {
		return nil, err
	}
	status, err := engine.Status()
	if err != nil {
		return nil, err
	}
	return envelope.Operational(status), nil
}

func (s *Server) toolListWorkspaces(params map[string]interface{}) (*envelope.Response, error) {
	if s.workspaces == nil {
		return nil, errors.New(errors.WorkspaceNotFound,
			"no workspace registry: run callmap workspace add first")
	}
	return envelope.Operational(map[string]interface{}{
		"workspaces": s.workspaces.List(),
		"active":     s.workspaces.Active,
	}), nil
}

func (s *Server) toolSwitchWorkspace(params map[string]interface{}) (*envelope.Response, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, err
	}

	ws, err := s.switchWorkspace(name)
	if err != nil {
		return nil, err
	}

	return envelope.New().
		Data(map[string]interface{}{"workspace": ws}).
		SuggestCall("getStatus", nil, "inspect provider availability in the new workspace").
		Build(), nil
}
