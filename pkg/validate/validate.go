package validate

import (
	"fmt"
	"sort"
	"strings"

	"insiderkg/pkg/common"
	"insiderkg/pkg/fusion"
	"insiderkg/pkg/logger"
)

// ValidationError reports a structural violation the validator cannot
// repair. The only unrecoverable case today is a graph without a single
// Company node.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("graph validation failed: %s", e.Reason)
}

// DefaultAuthority ranks governance roles by specificity. When a person
// holds several seats on the same board, only the highest-ranked role
// survives. Unknown roles rank alongside plain directors.
var DefaultAuthority = map[string]int{
	"chairman":                       90,
	"deputy chairman":                80,
	"vice chairman":                  80,
	"chief executive officer":        75,
	"ceo":                            75,
	"lead independent director":      70,
	"executive director":             60,
	"managing director":              60,
	"independent director":           50,
	"non-executive director":         50,
	"chairman of statutory auditors": 45,
	"statutory auditor":              40,
	"alternate auditor":              30,
	"director":                       20,
}

const defaultAuthorityRank = 20

// roleKeys are the edge property keys a role may arrive under, in lookup
// order.
var roleKeys = []string{"role", "title", "type"}

// Validator repairs a fused graph until it satisfies the structural
// invariants of the governance schema. All repairs are deterministic.
type Validator struct {
	authority map[string]int
}

type Option func(*Validator)

// WithAuthority replaces the role ranking table.
func WithAuthority(table map[string]int) Option {
	return func(v *Validator) {
		v.authority = table
	}
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{authority: DefaultAuthority}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate applies the repair rules in order: company uniqueness, dangling
// edge removal, orphan removal, redundant role collapse, identifier
// normalization. The graph is modified in place.
func (v *Validator) Validate(g *common.Graph) error {
	if err := v.enforceCompanyUniqueness(g); err != nil {
		return err
	}
	v.removeDangling(g)
	v.removeOrphans(g)
	v.collapseRedundantRoles(g)
	v.normalizeIdentifiers(g)
	return nil
}

// enforceCompanyUniqueness keeps the most complete Company node and
// redirects every edge touching a discarded one. A graph without any
// Company cannot be repaired.
func (v *Validator) enforceCompanyUniqueness(g *common.Graph) error {
	companies := sortedNodeIDs(g, common.LabelCompany)
	if len(companies) == 0 {
		return &ValidationError{Reason: "no Company node in graph"}
	}
	if len(companies) == 1 {
		return nil
	}

	keep := companies[0]
	best := nonEmptyCount(g.Nodes[keep].Properties)
	for _, id := range companies[1:] {
		if n := nonEmptyCount(g.Nodes[id].Properties); n > best {
			keep, best = id, n
		}
	}
	logger.Warn("Multiple Company nodes found, collapsing", "count", len(companies), "kept", keep)

	kept := g.Nodes[keep]
	for _, id := range companies {
		if id == keep {
			continue
		}
		fusion.MergeProperties(g.Nodes[id].Properties, kept.Properties)
		delete(g.Nodes, id)
		v.redirectEdges(g, id, keep)
	}
	return nil
}

// redirectEdges rewrites every edge endpoint referencing from so that it
// points at to, deduplicating edges that collapse onto an existing one.
func (v *Validator) redirectEdges(g *common.Graph, from, to string) {
	for _, key := range sortedEdgeKeys(g) {
		if key.Source != from && key.Dest != from {
			continue
		}
		edge := g.Edges[key]
		delete(g.Edges, key)
		if edge.Source == from {
			edge.Source = to
		}
		if edge.Dest == from {
			edge.Dest = to
		}
		v.insertEdge(g, edge)
	}
}

// insertEdge stores an edge at the first free parallel slot, dropping it
// when an identical edge already exists and merging when only one side
// carries properties.
func (v *Validator) insertEdge(g *common.Graph, edge *common.Edge) {
	for seq := 0; ; seq++ {
		key := common.EdgeKey{Source: edge.Source, Type: edge.Type, Dest: edge.Dest, Seq: seq}
		existing, ok := g.Edges[key]
		if !ok {
			g.Edges[key] = edge
			return
		}
		if propsEqual(existing.Properties, edge.Properties) {
			return
		}
		if !hasContent(edge.Properties) {
			return
		}
		if !hasContent(existing.Properties) {
			existing.Properties = edge.Properties
			return
		}
	}
}

func (v *Validator) removeDangling(g *common.Graph) {
	for key, edge := range g.Edges {
		if _, ok := g.Nodes[edge.Source]; !ok {
			delete(g.Edges, key)
			continue
		}
		if _, ok := g.Nodes[edge.Dest]; !ok {
			delete(g.Edges, key)
		}
	}
}

// removeOrphans drops nodes that carry no usable information: persons
// without a position or membership, boards and committees not attached to
// the company, and nodes whose property bag is empty. Removal cascades
// until the graph is stable.
func (v *Validator) removeOrphans(g *common.Graph) {
	for {
		removed := 0
		for _, id := range sortedAllNodeIDs(g) {
			node := g.Nodes[id]
			if !v.nodeSupported(g, node) {
				logger.Debug("Removing orphan node", "id", id, "label", node.Label)
				delete(g.Nodes, id)
				removed++
			}
		}
		if removed == 0 {
			return
		}
		v.removeDangling(g)
	}
}

func (v *Validator) nodeSupported(g *common.Graph, node *common.Node) bool {
	if !hasContent(node.Properties) {
		return false
	}
	switch node.Label {
	case common.LabelPerson:
		for key := range g.Edges {
			if key.Source == node.ID && (key.Type == common.EdgeHoldsPosition || key.Type == common.EdgeMemberOf) {
				return true
			}
		}
		return false
	case common.LabelBoard, common.LabelCommittee:
		for key, edge := range g.Edges {
			if key.Source != node.ID || key.Type != common.EdgePartOf {
				continue
			}
			if dest, ok := g.Nodes[edge.Dest]; ok && dest.Label == common.LabelCompany {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// collapseRedundantRoles keeps, per person and board, only the membership
// edge with the highest-ranked role. A chairman seat supersedes the plain
// director seat the extractor usually also reports.
func (v *Validator) collapseRedundantRoles(g *common.Graph) {
	type pair struct{ src, dst string }
	groups := make(map[pair][]common.EdgeKey)
	for _, key := range sortedEdgeKeys(g) {
		if key.Type != common.EdgeMemberOf {
			continue
		}
		dst, ok := g.Nodes[key.Dest]
		if !ok || dst.Label != common.LabelBoard {
			continue
		}
		p := pair{src: key.Source, dst: key.Dest}
		groups[p] = append(groups[p], key)
	}

	for _, keys := range groups {
		if len(keys) < 2 {
			continue
		}
		best := keys[0]
		bestRank := v.roleRank(g.Edges[best].Properties)
		for _, key := range keys[1:] {
			if rank := v.roleRank(g.Edges[key].Properties); rank > bestRank {
				best, bestRank = key, rank
			}
		}
		for _, key := range keys {
			if key != best {
				logger.Debug("Dropping redundant membership", "edge", key.String())
				delete(g.Edges, key)
			}
		}
	}
}

// roleRank resolves an edge's role against the authority table: exact
// match first, then the longest table entry contained in the role text.
func (v *Validator) roleRank(props map[string]string) int {
	role := ""
	for _, k := range roleKeys {
		if props[k] != "" {
			role = strings.ToLower(strings.TrimSpace(props[k]))
			break
		}
	}
	if role == "" {
		return defaultAuthorityRank
	}
	if rank, ok := v.authority[role]; ok {
		return rank
	}
	bestLen, bestRank := 0, defaultAuthorityRank
	for entry, rank := range v.authority {
		if len(entry) > bestLen && strings.Contains(role, entry) {
			bestLen, bestRank = len(entry), rank
		}
	}
	return bestRank
}

// normalizeIdentifiers re-derives every node id from its label and key
// properties, merging nodes that collapse onto the same identifier and
// rewriting edge endpoints accordingly.
func (v *Validator) normalizeIdentifiers(g *common.Graph) {
	companyName := ""
	for _, node := range g.Nodes {
		if node.Label == common.LabelCompany {
			companyName = node.Properties["name"]
			break
		}
	}

	rename := make(map[string]string, len(g.Nodes))
	renamed := make(map[string]*common.Node, len(g.Nodes))
	for _, id := range sortedAllNodeIDs(g) {
		node := g.Nodes[id]
		newID := deriveID(node, companyName)
		if newID == "" {
			newID = id
		}
		if existing, ok := renamed[newID]; ok {
			if existing.Label == node.Label {
				fusion.MergeProperties(node.Properties, existing.Properties)
				rename[id] = newID
				continue
			}
			// Different label landed on the same derived id. Keep the
			// original extraction-time id for the newcomer.
			newID = id
		}
		node.ID = newID
		renamed[newID] = node
		rename[id] = newID
	}
	g.Nodes = renamed

	rewritten := make(map[common.EdgeKey]*common.Edge, len(g.Edges))
	old := g.Edges
	g.Edges = rewritten
	for _, key := range sortedEdgeKeysOf(old) {
		edge := old[key]
		src, okSrc := rename[edge.Source]
		dst, okDst := rename[edge.Dest]
		if !okSrc || !okDst {
			continue
		}
		edge.Source, edge.Dest = src, dst
		v.insertEdge(g, edge)
	}
}

func sortedNodeIDs(g *common.Graph, label string) []string {
	ids := make([]string, 0)
	for id, node := range g.Nodes {
		if node.Label == label {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func sortedAllNodeIDs(g *common.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedEdgeKeys(g *common.Graph) []common.EdgeKey {
	return sortedEdgeKeysOf(g.Edges)
}

func sortedEdgeKeysOf(edges map[common.EdgeKey]*common.Edge) []common.EdgeKey {
	keys := make([]common.EdgeKey, 0, len(edges))
	for key := range edges {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Source != keys[j].Source {
			return keys[i].Source < keys[j].Source
		}
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		if keys[i].Dest != keys[j].Dest {
			return keys[i].Dest < keys[j].Dest
		}
		return keys[i].Seq < keys[j].Seq
	})
	return keys
}

func propsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func hasContent(props map[string]string) bool {
	for _, v := range props {
		if v != "" {
			return true
		}
	}
	return false
}

func nonEmptyCount(props map[string]string) int {
	n := 0
	for _, v := range props {
		if v != "" {
			n++
		}
	}
	return n
}
