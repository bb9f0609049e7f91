package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"callmap/internal/errors"
)

// unmarshalResult decodes a raw result, treating null and empty as an
// absent value rather than an error.
func unmarshalResult(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// PrepareCallHierarchy resolves the symbol at a position into hierarchy
// items. An empty slice means the position does not name a callable
// symbol; callers decide whether that aborts the operation.
func (s *Supervisor) PrepareCallHierarchy(ctx context.Context, languageID, uri string, pos Position) ([]CallHierarchyItem, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}

	raw, err := s.Query(ctx, languageID, "textDocument/prepareCallHierarchy", params)
	if err != nil {
		return nil, err
	}

	var items []CallHierarchyItem
	if err := unmarshalResult(raw, &items); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to decode prepareCallHierarchy result", err)
	}
	return items, nil
}

// IncomingCalls returns the callers of a prepared item.
func (s *Supervisor) IncomingCalls(ctx context.Context, languageID string, item CallHierarchyItem) ([]CallHierarchyIncomingCall, error) {
	raw, err := s.Query(ctx, languageID, "callHierarchy/incomingCalls", CallHierarchyCallsParams{Item: item})
	if err != nil {
		return nil, err
	}

	var calls []CallHierarchyIncomingCall
	if err := unmarshalResult(raw, &calls); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to decode incomingCalls result", err)
	}
	return calls, nil
}

// OutgoingCalls returns the callees of a prepared item.
func (s *Supervisor) OutgoingCalls(ctx context.Context, languageID string, item CallHierarchyItem) ([]CallHierarchyOutgoingCall, error) {
	raw, err := s.Query(ctx, languageID, "callHierarchy/outgoingCalls", CallHierarchyCallsParams{Item: item})
	if err != nil {
		return nil, err
	}

	var calls []CallHierarchyOutgoingCall
	if err := unmarshalResult(raw, &calls); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to decode outgoingCalls result", err)
	}
	return calls, nil
}

// Hover returns the flattened hover text at a position. Empty string with
// nil error means the server had nothing to say, which downstream layers
// treat as "signature undetectable", never as a failure.
func (s *Supervisor) Hover(ctx context.Context, languageID, uri string, pos Position) (string, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}

	raw, err := s.Query(ctx, languageID, "textDocument/hover", params)
	if err != nil {
		return "", err
	}

	var hover Hover
	if err := unmarshalResult(raw, &hover); err != nil {
		return "", errors.Wrap(errors.InternalError, "failed to decode hover result", err)
	}
	return hover.Text(), nil
}

// DocumentSymbols returns the symbol tree of a document. Servers that only
// speak the flat SymbolInformation shape are converted to a flat tree with
// no children, which degrades container matching but keeps every symbol
// addressable.
func (s *Supervisor) DocumentSymbols(ctx context.Context, languageID, uri string) ([]DocumentSymbol, error) {
	raw, err := s.Query(ctx, languageID, "textDocument/documentSymbol", DocumentSymbolParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		return nil, err
	}

	symbols, err := decodeDocumentSymbols(raw)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to decode documentSymbol result", err)
	}
	return symbols, nil
}

// decodeDocumentSymbols handles both documentSymbol result shapes. The
// hierarchical shape is detected by the selectionRange field on the first
// element.
func decodeDocumentSymbols(raw json.RawMessage) ([]DocumentSymbol, error) {
	var rawItems []json.RawMessage
	if err := unmarshalResult(raw, &rawItems); err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return nil, nil
	}

	var probe struct {
		SelectionRange *Range `json:"selectionRange"`
	}
	if err := json.Unmarshal(rawItems[0], &probe); err == nil && probe.SelectionRange != nil {
		var symbols []DocumentSymbol
		if err := json.Unmarshal(raw, &symbols); err != nil {
			return nil, err
		}
		return symbols, nil
	}

	var infos []SymbolInformation
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, err
	}

	symbols := make([]DocumentSymbol, 0, len(infos))
	for _, info := range infos {
		symbols = append(symbols, DocumentSymbol{
			Name:           info.Name,
			Kind:           info.Kind,
			Range:          info.Location.Range,
			SelectionRange: info.Location.Range,
		})
	}
	return symbols, nil
}

// DidOpen announces a document to the server. Most servers refuse
// document-scoped requests for files they have not seen opened.
func (s *Supervisor) DidOpen(ctx context.Context, languageID, uri, text string) error {
	proc := s.GetProcess(languageID)
	if proc == nil || !proc.IsHealthy() {
		if err := s.StartServer(languageID); err != nil {
			return err
		}
		proc = s.GetProcess(languageID)
		if proc == nil {
			return errors.New(errors.ServerNotReady,
				fmt.Sprintf("language server not available for %q", languageID))
		}
	}

	return proc.sendNotification("textDocument/didOpen", DidOpenParams{
		TextDocument: TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       text,
		},
	})
}

// DidClose retracts a document. Missing servers are ignored.
func (s *Supervisor) DidClose(ctx context.Context, languageID, uri string) error {
	proc := s.GetProcess(languageID)
	if proc == nil || !proc.IsHealthy() {
		return nil
	}

	return proc.sendNotification("textDocument/didClose", DidCloseParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}
