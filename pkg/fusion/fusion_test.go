package fusion

import (
	"testing"

	"insiderkg/pkg/common"
)

func newFragment(nodes []common.Node, edges []common.Edge) *common.Fragment {
	return &common.Fragment{Nodes: nodes, Edges: edges}
}

func TestFoldExactKeyMatch(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	first := newFragment([]common.Node{
		{ID: "person_john_doe", Label: common.LabelPerson, Properties: map[string]string{"name": "John Doe"}},
	}, nil)
	second := newFragment([]common.Node{
		{ID: "john_doe", Label: common.LabelPerson, Properties: map[string]string{"name": "John   Doe", "birth_date": "1970-01-01"}},
	}, nil)

	if err := engine.Fold(first, g, ids); err != nil {
		t.Fatalf("fold first: %v", err)
	}
	if err := engine.Fold(second, g, ids); err != nil {
		t.Fatalf("fold second: %v", err)
	}

	if len(g.Nodes) != 1 {
		t.Fatalf("expected 1 node after fold, got %d", len(g.Nodes))
	}
	node := g.Nodes["person_john_doe"]
	if node == nil {
		t.Fatal("canonical node missing")
	}
	if node.Properties["birth_date"] != "1970-01-01" {
		t.Fatalf("merged property missing, got %v", node.Properties)
	}
	if ids["john_doe"] != "person_john_doe" {
		t.Fatalf("identity map not updated: %v", ids)
	}
}

func TestFoldFuzzyIDMatch(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	if err := engine.Fold(newFragment([]common.Node{
		{ID: "person_john_doe", Label: common.LabelPerson, Properties: map[string]string{"name": "John Doe"}},
	}, nil), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := engine.Fold(newFragment([]common.Node{
		{ID: "person_jon_doe", Label: common.LabelPerson, Properties: map[string]string{"name": "Jon Doe"}},
	}, nil), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if len(g.Nodes) != 1 {
		t.Fatalf("near-identical ids should fold into one node, got %d", len(g.Nodes))
	}
	if ids["person_jon_doe"] != "person_john_doe" {
		t.Fatalf("identity map: %v", ids)
	}
}

func TestFoldNeverMergesAcrossLabels(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	fragment := newFragment([]common.Node{
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
		{ID: "committee_acme", Label: common.LabelCommittee, Properties: map[string]string{"name": "Acme"}},
	}, nil)
	if err := engine.Fold(fragment, g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if len(g.Nodes) != 2 {
		t.Fatalf("identical names under different labels must stay separate, got %d nodes", len(g.Nodes))
	}
}

func TestFoldDropsEmptyDrafts(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	fragment := newFragment([]common.Node{
		{ID: "person_ghost", Label: common.LabelPerson, Properties: map[string]string{"name": ""}},
		{ID: "", Label: common.LabelPerson, Properties: map[string]string{"name": "Nameless"}},
	}, []common.Edge{
		{Source: "person_ghost", Type: common.EdgeHoldsPosition, Dest: "company_acme"},
	})
	if err := engine.Fold(fragment, g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if len(g.Nodes) != 0 {
		t.Fatalf("empty drafts must be dropped, got %d nodes", len(g.Nodes))
	}
	if len(g.Edges) != 0 {
		t.Fatalf("edges on dropped nodes must be skipped, got %d edges", len(g.Edges))
	}
}

func TestFoldPropertyMergeKeepsLonger(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		incoming string
		want     string
	}{
		{"incoming longer wins", "Milan", "Milan, Italy", "Milan, Italy"},
		{"existing longer kept", "Milan, Italy", "Milan", "Milan, Italy"},
		{"incoming fills empty", "", "Milan", "Milan"},
		{"empty incoming ignored", "Milan", "", "Milan"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dst := map[string]string{"city": tc.existing}
			MergeProperties(map[string]string{"city": tc.incoming}, dst)
			if dst["city"] != tc.want {
				t.Fatalf("got %q, want %q", dst["city"], tc.want)
			}
		})
	}
}

func TestFoldEdgeDedup(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	nodes := []common.Node{
		{ID: "person_jane_roe", Label: common.LabelPerson, Properties: map[string]string{"name": "Jane Roe"}},
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
	}
	edge := common.Edge{
		Source:     "person_jane_roe",
		Type:       common.EdgeHoldsPosition,
		Dest:       "company_acme",
		Properties: map[string]string{"role": "CEO"},
	}
	if err := engine.Fold(newFragment(nodes, []common.Edge{edge}), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := engine.Fold(newFragment(nil, []common.Edge{edge}), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if len(g.Edges) != 1 {
		t.Fatalf("identical edges must dedupe, got %d", len(g.Edges))
	}
}

func TestFoldEdgeQualifierMerge(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	nodes := []common.Node{
		{ID: "person_jane_roe", Label: common.LabelPerson, Properties: map[string]string{"name": "Jane Roe"}},
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
	}
	if err := engine.Fold(newFragment(nodes, []common.Edge{
		{Source: "person_jane_roe", Type: common.EdgeHoldsPosition, Dest: "company_acme",
			Properties: map[string]string{"role": "Independent Director"}},
	}), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := engine.Fold(newFragment(nil, []common.Edge{
		{Source: "person_jane_roe", Type: common.EdgeHoldsPosition, Dest: "company_acme",
			Properties: map[string]string{"role": "Director", "from": "2023"}},
	}), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if len(g.Edges) != 1 {
		t.Fatalf("qualifier-only role variants must merge, got %d edges", len(g.Edges))
	}
	merged := g.Edges[common.EdgeKey{Source: "person_jane_roe", Type: common.EdgeHoldsPosition, Dest: "company_acme"}]
	if merged == nil {
		t.Fatal("merged edge missing")
	}
	if merged.Properties["from"] != "2023" {
		t.Fatalf("temporal property not merged: %v", merged.Properties)
	}
	if merged.Properties["role"] != "Independent Director" {
		t.Fatalf("longer role should survive merge: %v", merged.Properties)
	}
}

func TestFoldEdgeDistinctRolesDisambiguated(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	nodes := []common.Node{
		{ID: "person_jane_roe", Label: common.LabelPerson, Properties: map[string]string{"name": "Jane Roe"}},
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
	}
	if err := engine.Fold(newFragment(nodes, []common.Edge{
		{Source: "person_jane_roe", Type: common.EdgeHoldsPosition, Dest: "company_acme",
			Properties: map[string]string{"role": "CEO"}},
		{Source: "person_jane_roe", Type: common.EdgeHoldsPosition, Dest: "company_acme",
			Properties: map[string]string{"role": "CFO"}},
	}), g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if len(g.Edges) != 2 {
		t.Fatalf("distinct roles must stay separate, got %d edges", len(g.Edges))
	}
	second := g.Edges[common.EdgeKey{Source: "person_jane_roe", Type: common.EdgeHoldsPosition, Dest: "company_acme", Seq: 1}]
	if second == nil {
		t.Fatal("disambiguated edge missing")
	}
	if second.Properties["role"] != "CFO" {
		t.Fatalf("disambiguated edge properties: %v", second.Properties)
	}
}

func TestFoldSkipsUnresolvedEndpoints(t *testing.T) {
	engine := NewEngine()
	g := common.NewGraph()
	ids := IdentityMap{}

	fragment := newFragment([]common.Node{
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
	}, []common.Edge{
		{Source: "person_unknown", Type: common.EdgeHoldsPosition, Dest: "company_acme"},
	})
	if err := engine.Fold(fragment, g, ids); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if len(g.Edges) != 0 {
		t.Fatalf("edge with unresolved endpoint must be skipped, got %d", len(g.Edges))
	}
}

func TestFoldDeterministic(t *testing.T) {
	fragments := []*common.Fragment{
		newFragment([]common.Node{
			{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme S.p.A."}},
			{ID: "person_john_doe", Label: common.LabelPerson, Properties: map[string]string{"name": "John Doe"}},
		}, []common.Edge{
			{Source: "person_john_doe", Type: common.EdgeHoldsPosition, Dest: "company_acme",
				Properties: map[string]string{"role": "Chairman"}},
		}),
		newFragment([]common.Node{
			{ID: "person_jon_doe", Label: common.LabelPerson, Properties: map[string]string{"name": "Jon Doe", "birth_place": "Milan"}},
		}, nil),
	}

	run := func() *common.Graph {
		engine := NewEngine()
		g := common.NewGraph()
		ids := IdentityMap{}
		for _, f := range fragments {
			if err := engine.Fold(f, g, ids); err != nil {
				t.Fatalf("fold: %v", err)
			}
		}
		return g
	}

	a, b := run(), run()
	if len(a.Nodes) != len(b.Nodes) || len(a.Edges) != len(b.Edges) {
		t.Fatalf("runs diverged: %d/%d nodes, %d/%d edges",
			len(a.Nodes), len(b.Nodes), len(a.Edges), len(b.Edges))
	}
	for id, node := range a.Nodes {
		other := b.Nodes[id]
		if other == nil {
			t.Fatalf("node %q missing in second run", id)
		}
		for k, v := range node.Properties {
			if other.Properties[k] != v {
				t.Fatalf("node %q property %q diverged: %q vs %q", id, k, v, other.Properties[k])
			}
		}
	}
}

func TestAnnotate(t *testing.T) {
	g := common.NewGraph()
	g.Nodes["company_acme"] = &common.Node{
		ID: "company_acme", Label: common.LabelCompany,
		Properties: map[string]string{"name": "Acme"},
	}
	g.Nodes["person_pre"] = &common.Node{
		ID: "person_pre", Label: common.LabelPerson,
		Properties: map[string]string{"name": "Pre", common.SourceKey: "https://old.example/r.pdf"},
	}
	key := common.EdgeKey{Source: "person_pre", Type: common.EdgeHoldsPosition, Dest: "company_acme"}
	g.Edges[key] = &common.Edge{Source: "person_pre", Type: common.EdgeHoldsPosition, Dest: "company_acme"}

	Annotate(g, "https://example.com/report.pdf")

	if got := g.Nodes["company_acme"].Properties[common.SourceKey]; got != "https://example.com/report.pdf" {
		t.Fatalf("node source = %q", got)
	}
	if got := g.Nodes["person_pre"].Properties[common.SourceKey]; got != "https://old.example/r.pdf" {
		t.Fatalf("existing source must be preserved, got %q", got)
	}
	if got := g.Edges[key].Properties[common.SourceKey]; got != "https://example.com/report.pdf" {
		t.Fatalf("edge source = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme S.p.A.", "acme s p a"},
		{"  JOHN   DOE ", "john doe"},
		{"Comitato-Controllo, Rischi", "comitato controllo rischi"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
