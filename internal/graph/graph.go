// Package graph turns extracted triples into a directed labeled graph and renders it.
package graph

import "doc-distill/internal/parser"

// Node is an entity appearing as a subject or object.
type Node struct {
	ID    int64
	Label string
}

// Edge is one triple: a directed relation labeled with its predicate.
type Edge struct {
	From  int64
	To    int64
	Label string
}

// KnowledgeGraph holds one node per distinct subject/object string and one edge per triple.
// Nodes keep the order in which they first appear.
type KnowledgeGraph struct {
	Nodes []Node
	Edges []Edge

	index map[string]int64
}

// Build derives the graph from an ordered triple sequence.
func Build(triples []parser.Triple) *KnowledgeGraph {
	g := &KnowledgeGraph{index: make(map[string]int64)}
	for _, t := range triples {
		from := g.node(t.Subject)
		to := g.node(t.Object)
		g.Edges = append(g.Edges, Edge{From: from, To: to, Label: t.Predicate})
	}
	return g
}

func (g *KnowledgeGraph) node(label string) int64 {
	if id, ok := g.index[label]; ok {
		return id
	}
	id := int64(len(g.Nodes))
	g.index[label] = id
	g.Nodes = append(g.Nodes, Node{ID: id, Label: label})
	return id
}

// NodeID looks up a node by label.
func (g *KnowledgeGraph) NodeID(label string) (int64, bool) {
	id, ok := g.index[label]
	return id, ok
}

// Label returns the label of node id.
func (g *KnowledgeGraph) Label(id int64) string {
	if id < 0 || int(id) >= len(g.Nodes) {
		return ""
	}
	return g.Nodes[id].Label
}

// Empty reports whether the graph has no nodes.
func (g *KnowledgeGraph) Empty() bool {
	return len(g.Nodes) == 0
}
