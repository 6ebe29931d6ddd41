package common

import "fmt"

// Node labels produced by report extraction. The label set is open at the
// extraction boundary, but these are the ones the governance schema knows.
const (
	LabelCompany   = "Company"
	LabelPerson    = "Person"
	LabelBoard     = "Board"
	LabelCommittee = "Committee"
	LabelAuditor   = "Auditor"
	LabelAddress   = "Address"
)

// Relationship types produced by report extraction.
const (
	EdgeHoldsPosition = "HOLDS_POSITION"
	EdgeMemberOf      = "MEMBER_OF"
	EdgePartOf        = "PART_OF"
	EdgeLocatedAt     = "LOCATED_AT"
	EdgeAuditedBy     = "AUDITED_BY"
)

// SourceKey is the property holding the provenance URL on nodes and edges.
const SourceKey = "source"

// Node represents an entity in the governance graph. Properties is an open
// string-valued bag: the set of keys depends on what the extraction found.
// An empty string value means "unknown" and is distinct from key absence.
type Node struct {
	ID         string            `json:"id" jsonschema_description:"Unique ID of the node derived from its label and key properties."`
	Label      string            `json:"label" jsonschema_description:"Entity type: Company, Person, Board, Committee, Auditor or Address."`
	Properties map[string]string `json:"properties" jsonschema_description:"Properties of the node. Use an empty string when a value is unknown."`
}

// Edge represents a directed relationship between two nodes. Source and Dest
// reference node IDs; inside a Fragment they are fragment-local and only
// become canonical after fusion.
type Edge struct {
	Source     string            `json:"source" jsonschema_description:"ID of the source node."`
	Type       string            `json:"type" jsonschema_description:"Relationship type, e.g. MEMBER_OF or PART_OF."`
	Dest       string            `json:"dest" jsonschema_description:"ID of the destination node."`
	Properties map[string]string `json:"properties" jsonschema_description:"Properties of the relationship. Use an empty string when a value is unknown."`
}

// Fragment is the node/edge set extracted from a single report chunk.
// It is ephemeral: produced by one extraction call and consumed exactly once
// when folded into a Graph.
type Fragment struct {
	Nodes []Node `json:"nodes" jsonschema_description:"Nodes identified in the chunk."`
	Edges []Edge `json:"edges" jsonschema_description:"Edges identified in the chunk."`
}

// EdgeKey identifies an edge in the fused graph. Seq disambiguates edges that
// share endpoints and type but were judged genuinely distinct relationships
// (e.g. two different tenures of the same role); it is 0 for the first edge.
type EdgeKey struct {
	Source string
	Type   string
	Dest   string
	Seq    int
}

func (k EdgeKey) String() string {
	if k.Seq == 0 {
		return fmt.Sprintf("%s-%s-%s", k.Source, k.Type, k.Dest)
	}
	return fmt.Sprintf("%s-%s-%s-%d", k.Source, k.Type, k.Dest, k.Seq)
}

// Graph is the fused, canonical result of a workflow run. It is mutated in
// place through fusion, validation and annotation, then handed to a sink and
// not mutated again. A Graph is never shared between runs.
type Graph struct {
	Nodes map[string]*Node
	Edges map[EdgeKey]*Edge
}

// NewGraph returns an empty graph ready for folding.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
		Edges: make(map[EdgeKey]*Edge),
	}
}

// NodesByLabel returns the canonical nodes carrying the given label.
func (g *Graph) NodesByLabel(label string) []*Node {
	var nodes []*Node
	for _, n := range g.Nodes {
		if n.Label == label {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// OutEdges returns the edges whose source is the given canonical node id.
func (g *Graph) OutEdges(nodeID string) []*Edge {
	var edges []*Edge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			edges = append(edges, e)
		}
	}
	return edges
}

// GraphDocument is the JSON shape persisted to the results directory and
// consumed by downstream tooling: plain node and edge arrays.
type GraphDocument struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Document flattens the graph into its serializable form. Iteration order of
// the underlying maps is not stable; callers that need determinism (tests,
// result files) sort the arrays afterwards.
func (g *Graph) Document() GraphDocument {
	doc := GraphDocument{
		Nodes: make([]Node, 0, len(g.Nodes)),
		Edges: make([]Edge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, *n)
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, *e)
	}
	return doc
}
