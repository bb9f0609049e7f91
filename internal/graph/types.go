// Package graph builds and models call graphs. A graph is a set of nodes
// keyed by symbol position plus directed caller->callee edges, expanded
// breadth-first from a root symbol up to a depth limit.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"callmap/internal/errors"
	"callmap/internal/lsp"
)

// Direction selects which side of the call relation to expand.
type Direction string

const (
	// DirectionBoth expands callers and callees
	DirectionBoth Direction = "both"
	// DirectionCallers expands incoming calls only
	DirectionCallers Direction = "callers"
	// DirectionCallees expands outgoing calls only
	DirectionCallees Direction = "callees"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionBoth, DirectionCallers, DirectionCallees:
		return Direction(s), nil
	case "":
		return DirectionBoth, nil
	}
	return "", errors.New(errors.InvalidParameter,
		fmt.Sprintf("invalid direction %q: must be both, callers, or callees", s))
}

// Node is one symbol in the graph. Line and Column are zero-based and
// point at the symbol name, not the declaration body. ContainerName is
// recorded when the symbol name carries a qualified prefix; it feeds
// relocation later and is empty for plain names.
type Node struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	URI           string `json:"uri"`
	Line          int    `json:"line"`
	Column        int    `json:"column"`
	Kind          string `json:"kind"`
	ContainerName string `json:"containerName,omitempty"`
	Signature     string `json:"signature,omitempty"`
	Depth         int    `json:"depth"`
}

// Edge is a directed call: From calls To. Both ends are node IDs.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a built call graph ready for persistence or rendering.
type Graph struct {
	ID        string    `json:"id"`
	RootID    string    `json:"rootId"`
	Direction Direction `json:"direction"`
	Depth     int       `json:"depth"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	CreatedAt time.Time `json:"createdAt"`

	// Truncated is set when the node budget stopped the expansion early.
	Truncated bool `json:"truncated,omitempty"`
}

// NodeID builds the identity key for a symbol occurrence. Identity is
// position plus raw name; the signature is descriptive and never part of
// the key. The truncated digest keeps IDs short and opaque instead of
// leaking filesystem paths into every edge.
func NodeID(uri string, line, column int, name string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d:%s", uri, line, column, name)))
	return hex.EncodeToString(sum[:8])
}

// itemID is NodeID applied to a call hierarchy item's selection anchor.
func itemID(item lsp.CallHierarchyItem) string {
	return NodeID(item.URI, item.SelectionRange.Start.Line, item.SelectionRange.Start.Character, item.Name)
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Root returns the root node, or nil for an empty graph.
func (g *Graph) Root() *Node {
	return g.Node(g.RootID)
}
