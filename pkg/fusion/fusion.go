package fusion

import (
	"fmt"
	"sort"
	"strings"

	"insiderkg/pkg/common"
	"insiderkg/pkg/logger"
)

const (
	// nodeMatchThreshold is the minimum combined score at which a draft
	// node is folded into an existing canonical node.
	nodeMatchThreshold = 80

	// edgeValueSimilarity is the minimum token-set ratio at which two edge
	// property values are considered to describe the same fact.
	edgeValueSimilarity = 70

	// edgeMatchFraction is the share of overlapping property keys that
	// must match for two parallel edges to be merged.
	edgeMatchFraction = 0.5
)

// temporalKeys are excluded from edge overlap comparison: two mandates for
// the same seat may legitimately differ only in their validity window.
var temporalKeys = map[string]bool{
	"from": true,
	"to":   true,
}

// IdentityMap records, per run, which canonical node absorbed each draft
// node id. Edges arriving in later fragments resolve their endpoints
// through it.
type IdentityMap map[string]string

// InvariantError reports an internal inconsistency between the identity
// map and the graph. It indicates a bug in the fold, not bad input.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("fusion invariant violated: %s", e.Reason)
}

// Engine folds per-chunk extraction fragments into a single canonical
// graph. Folding is deterministic: the same fragments applied in the same
// order always produce the same graph.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Fold merges a fragment into the graph, updating the identity map with
// the canonical id of every draft node it registers. Draft nodes without
// an id or without any non-empty property are dropped, and edges touching
// dropped or unknown endpoints are skipped.
func (e *Engine) Fold(fragment *common.Fragment, g *common.Graph, ids IdentityMap) error {
	if fragment == nil {
		return nil
	}
	for i := range fragment.Nodes {
		if err := e.foldNode(&fragment.Nodes[i], g, ids); err != nil {
			return err
		}
	}
	for i := range fragment.Edges {
		if err := e.foldEdge(&fragment.Edges[i], g, ids); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) foldNode(draft *common.Node, g *common.Graph, ids IdentityMap) error {
	if draft.ID == "" || draft.Label == "" {
		return nil
	}
	if !hasContent(draft.Properties) {
		logger.Debug("Dropping empty draft node", "id", draft.ID, "label", draft.Label)
		return nil
	}

	draftKey := comparisonKey(draft)

	if canonical := e.bestCandidate(draft, draftKey, g); canonical != nil {
		MergeProperties(draft.Properties, canonical.Properties)
		ids[draft.ID] = canonical.ID
		if _, ok := g.Nodes[canonical.ID]; !ok {
			return &InvariantError{Reason: fmt.Sprintf("canonical node %q vanished from graph", canonical.ID)}
		}
		return nil
	}

	id := draft.ID
	for {
		existing, taken := g.Nodes[id]
		if !taken {
			break
		}
		// An unrelated node of another label already owns this id.
		// Keep both by suffixing the newcomer.
		if existing.Label == draft.Label {
			break
		}
		id = nextSuffix(id)
	}

	node := &common.Node{
		ID:         id,
		Label:      draft.Label,
		Properties: copyProperties(draft.Properties),
	}
	g.Nodes[id] = node
	ids[draft.ID] = id
	return nil
}

// bestCandidate scans canonical nodes of the draft's label and returns the
// best match, or nil when nothing clears the threshold. Exact non-empty
// comparison-key equality wins immediately.
func (e *Engine) bestCandidate(draft *common.Node, draftKey string, g *common.Graph) *common.Node {
	candidateIDs := make([]string, 0)
	for id, node := range g.Nodes {
		if node.Label == draft.Label {
			candidateIDs = append(candidateIDs, id)
		}
	}
	sort.Strings(candidateIDs)

	var best *common.Node
	bestScore := 0
	for _, id := range candidateIDs {
		candidate := g.Nodes[id]
		candidateKey := comparisonKey(candidate)
		if draftKey != "" && draftKey == candidateKey {
			return candidate
		}
		score := matchScore(draft.ID, draftKey, candidate.ID, candidateKey)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore >= nodeMatchThreshold {
		return best
	}
	return nil
}

func (e *Engine) foldEdge(draft *common.Edge, g *common.Graph, ids IdentityMap) error {
	if draft.Type == "" {
		return nil
	}
	src, ok := ids[draft.Source]
	if !ok {
		logger.Debug("Skipping edge with unresolved source", "source", draft.Source, "type", draft.Type)
		return nil
	}
	dst, ok := ids[draft.Dest]
	if !ok {
		logger.Debug("Skipping edge with unresolved destination", "dest", draft.Dest, "type", draft.Type)
		return nil
	}
	if _, ok := g.Nodes[src]; !ok {
		return &InvariantError{Reason: fmt.Sprintf("identity map points at missing node %q", src)}
	}
	if _, ok := g.Nodes[dst]; !ok {
		return &InvariantError{Reason: fmt.Sprintf("identity map points at missing node %q", dst)}
	}

	incoming := copyProperties(draft.Properties)

	// Walk existing parallel edges in suffix order. The first one the
	// incoming edge is equivalent to absorbs it; if it is distinct from
	// all of them it lands on the first free suffix.
	for seq := 0; ; seq++ {
		key := common.EdgeKey{Source: src, Type: draft.Type, Dest: dst, Seq: seq}
		existing, ok := g.Edges[key]
		if !ok {
			g.Edges[key] = &common.Edge{
				Source:     src,
				Type:       draft.Type,
				Dest:       dst,
				Properties: incoming,
			}
			return nil
		}
		if e.reconcileEdge(existing, incoming) {
			return nil
		}
	}
}

// reconcileEdge decides whether an incoming parallel edge is the same fact
// as an existing one, merging properties into the existing edge when it
// is. It reports false when the two edges are distinct and the incoming
// edge must be stored separately.
func (e *Engine) reconcileEdge(existing *common.Edge, incoming map[string]string) bool {
	if propertiesEqual(existing.Properties, incoming) {
		return true
	}
	if !hasContent(incoming) {
		return true
	}
	if !hasContent(existing.Properties) {
		existing.Properties = copyProperties(incoming)
		return true
	}

	overlap := make([]string, 0)
	for k := range incoming {
		if temporalKeys[k] {
			continue
		}
		if _, ok := existing.Properties[k]; ok {
			overlap = append(overlap, k)
		}
	}
	if len(overlap) == 0 {
		MergeProperties(incoming, existing.Properties)
		return true
	}

	matching := 0
	for _, k := range overlap {
		if valuesMatch(existing.Properties[k], incoming[k]) {
			matching++
		}
	}
	if float64(matching)/float64(len(overlap)) >= edgeMatchFraction {
		MergeProperties(incoming, existing.Properties)
		return true
	}
	return false
}

// MergeProperties folds incoming property values into dst. Non-empty
// values win over absent or empty ones; when both sides carry a non-empty
// value the longer string is kept.
func MergeProperties(incoming, dst map[string]string) {
	for k, v := range incoming {
		if v == "" {
			continue
		}
		old, ok := dst[k]
		switch {
		case !ok || old == "":
			dst[k] = v
		case old == v:
		case len(v) > len(old):
			dst[k] = v
		}
	}
}

func propertiesEqual(a, b map[string]string) bool {
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

func copyProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func nextSuffix(id string) string {
	if idx := strings.LastIndex(id, "_"); idx > 0 {
		var n int
		if _, err := fmt.Sscanf(id[idx+1:], "%d", &n); err == nil {
			return fmt.Sprintf("%s_%d", id[:idx], n+1)
		}
	}
	return id + "_2"
}
