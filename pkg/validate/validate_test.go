package validate

import (
	"testing"

	"insiderkg/pkg/common"
)

func buildGraph(nodes []*common.Node, edges []*common.Edge) *common.Graph {
	g := common.NewGraph()
	for _, n := range nodes {
		if n.Properties == nil {
			n.Properties = map[string]string{}
		}
		g.Nodes[n.ID] = n
	}
	for _, e := range edges {
		if e.Properties == nil {
			e.Properties = map[string]string{}
		}
		key := common.EdgeKey{Source: e.Source, Type: e.Type, Dest: e.Dest}
		for {
			if _, taken := g.Edges[key]; !taken {
				break
			}
			key.Seq++
		}
		g.Edges[key] = e
	}
	return g
}

func TestValidateNoCompanyFatal(t *testing.T) {
	g := buildGraph([]*common.Node{
		{ID: "person_mario_rossi", Label: common.LabelPerson, Properties: map[string]string{"name": "Mario Rossi"}},
	}, nil)

	err := NewValidator().Validate(g)
	if err == nil {
		t.Fatal("expected error for graph without Company node")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestValidateCompanyUniqueness(t *testing.T) {
	g := buildGraph([]*common.Node{
		{ID: "company_acme", Label: common.LabelCompany,
			Properties: map[string]string{"name": "Acme S.p.A.", "vat": "IT123", "city": "Milan"}},
		{ID: "company_acme_spa", Label: common.LabelCompany,
			Properties: map[string]string{"name": "Acme"}},
		{ID: "person_mario_rossi", Label: common.LabelPerson,
			Properties: map[string]string{"name": "Mario Rossi"}},
	}, []*common.Edge{
		{Source: "person_mario_rossi", Type: common.EdgeHoldsPosition, Dest: "company_acme_spa",
			Properties: map[string]string{"role": "CEO"}},
	})

	if err := NewValidator().Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}

	var companies []*common.Node
	for _, n := range g.Nodes {
		if n.Label == common.LabelCompany {
			companies = append(companies, n)
		}
	}
	if len(companies) != 1 {
		t.Fatalf("expected exactly one Company node, got %d", len(companies))
	}
	if companies[0].Properties["vat"] != "IT123" {
		t.Fatalf("most complete company should survive: %v", companies[0].Properties)
	}

	found := false
	for _, e := range g.Edges {
		if e.Type == common.EdgeHoldsPosition && e.Dest == companies[0].ID {
			found = true
		}
	}
	if !found {
		t.Fatal("edge to discarded company was not redirected")
	}
}

func TestValidateOrphanRemoval(t *testing.T) {
	g := buildGraph([]*common.Node{
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
		{ID: "board_of_directors_acme", Label: common.LabelBoard, Properties: map[string]string{"type": "Board of Directors"}},
		{ID: "person_mario_rossi", Label: common.LabelPerson, Properties: map[string]string{"name": "Mario Rossi"}},
		{ID: "person_loner", Label: common.LabelPerson, Properties: map[string]string{"name": "No Seat"}},
		{ID: "committee_detached_acme", Label: common.LabelCommittee, Properties: map[string]string{"name": "Detached Committee"}},
		{ID: "person_empty", Label: common.LabelPerson, Properties: map[string]string{}},
	}, []*common.Edge{
		{Source: "board_of_directors_acme", Type: common.EdgePartOf, Dest: "company_acme"},
		{Source: "person_mario_rossi", Type: common.EdgeMemberOf, Dest: "board_of_directors_acme",
			Properties: map[string]string{"role": "Director"}},
	})

	if err := NewValidator().Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}

	for _, id := range []string{"person_loner", "committee_detached_acme", "person_empty"} {
		if _, ok := g.Nodes[id]; ok {
			t.Fatalf("orphan %q survived validation", id)
		}
	}
	if _, ok := g.Nodes["person_mario_rossi"]; !ok {
		t.Fatal("connected person was dropped")
	}
	if _, ok := g.Nodes["board_of_directors_acme"]; !ok {
		t.Fatal("attached board was dropped")
	}
}

func TestValidateOrphanRemovalCascades(t *testing.T) {
	// The person's only membership points at a committee that is itself
	// orphaned; dropping the committee must orphan and drop the person.
	g := buildGraph([]*common.Node{
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
		{ID: "committee_detached_acme", Label: common.LabelCommittee, Properties: map[string]string{"name": "Detached"}},
		{ID: "person_mario_rossi", Label: common.LabelPerson, Properties: map[string]string{"name": "Mario Rossi"}},
	}, []*common.Edge{
		{Source: "person_mario_rossi", Type: common.EdgeMemberOf, Dest: "committee_detached_acme",
			Properties: map[string]string{"role": "Member"}},
	})

	if err := NewValidator().Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("expected only the company to survive, got %d nodes", len(g.Nodes))
	}
}

func TestValidateRedundantRoleCollapse(t *testing.T) {
	g := buildGraph([]*common.Node{
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
		{ID: "board_of_directors_acme", Label: common.LabelBoard, Properties: map[string]string{"type": "Board of Directors"}},
		{ID: "person_mario_rossi", Label: common.LabelPerson, Properties: map[string]string{"name": "Mario Rossi"}},
	}, []*common.Edge{
		{Source: "board_of_directors_acme", Type: common.EdgePartOf, Dest: "company_acme"},
		{Source: "person_mario_rossi", Type: common.EdgeMemberOf, Dest: "board_of_directors_acme",
			Properties: map[string]string{"role": "Director"}},
		{Source: "person_mario_rossi", Type: common.EdgeMemberOf, Dest: "board_of_directors_acme",
			Properties: map[string]string{"role": "Chairman"}},
	})

	if err := NewValidator().Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}

	var memberships []*common.Edge
	for _, e := range g.Edges {
		if e.Type == common.EdgeMemberOf {
			memberships = append(memberships, e)
		}
	}
	if len(memberships) != 1 {
		t.Fatalf("expected one membership after collapse, got %d", len(memberships))
	}
	if memberships[0].Properties["role"] != "Chairman" {
		t.Fatalf("chairman seat must supersede director, got %v", memberships[0].Properties)
	}
}

func TestValidateIdentifierNormalization(t *testing.T) {
	g := buildGraph([]*common.Node{
		{ID: "acme_company", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme S.p.A."}},
		{ID: "rossi", Label: common.LabelPerson, Properties: map[string]string{"name": "Mario Rossi"}},
		{ID: "bod", Label: common.LabelBoard, Properties: map[string]string{"type": "Board of Directors"}},
	}, []*common.Edge{
		{Source: "bod", Type: common.EdgePartOf, Dest: "acme_company"},
		{Source: "rossi", Type: common.EdgeHoldsPosition, Dest: "acme_company",
			Properties: map[string]string{"role": "CEO"}},
		{Source: "rossi", Type: common.EdgeMemberOf, Dest: "bod",
			Properties: map[string]string{"role": "Director"}},
	})

	if err := NewValidator().Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}

	for _, want := range []string{"company_acme", "person_mario_rossi", "board_of_directors_acme"} {
		if _, ok := g.Nodes[want]; !ok {
			t.Fatalf("expected node id %q after normalization, nodes: %v", want, nodeIDs(g))
		}
	}
	key := common.EdgeKey{Source: "person_mario_rossi", Type: common.EdgeHoldsPosition, Dest: "company_acme"}
	if _, ok := g.Edges[key]; !ok {
		t.Fatal("edge endpoints were not rewritten to normalized ids")
	}
}

func TestValidateNormalizationMergesDuplicates(t *testing.T) {
	g := buildGraph([]*common.Node{
		{ID: "company_acme", Label: common.LabelCompany, Properties: map[string]string{"name": "Acme"}},
		{ID: "person_mario_rossi", Label: common.LabelPerson, Properties: map[string]string{"name": "Mario Rossi"}},
		{ID: "person_mario_rossi_x", Label: common.LabelPerson,
			Properties: map[string]string{"name": "Mario Rossi", "birth_place": "Milan"}},
	}, []*common.Edge{
		{Source: "person_mario_rossi", Type: common.EdgeHoldsPosition, Dest: "company_acme",
			Properties: map[string]string{"role": "CEO"}},
		{Source: "person_mario_rossi_x", Type: common.EdgeHoldsPosition, Dest: "company_acme",
			Properties: map[string]string{"role": "CEO"}},
	})

	if err := NewValidator().Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}

	person := g.Nodes["person_mario_rossi"]
	if person == nil {
		t.Fatalf("merged person missing, nodes: %v", nodeIDs(g))
	}
	if person.Properties["birth_place"] != "Milan" {
		t.Fatalf("properties not merged across duplicate ids: %v", person.Properties)
	}
	if len(g.Edges) != 1 {
		t.Fatalf("duplicate edges must collapse after id merge, got %d", len(g.Edges))
	}
}

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name    string
		node    *common.Node
		company string
		want    string
	}{
		{
			"person with diacritics and apostrophe",
			&common.Node{Label: common.LabelPerson, Properties: map[string]string{"name": "Niccolò D'Angelo"}},
			"Acme",
			"person_niccolo_d_angelo",
		},
		{
			"company legal suffix dropped",
			&common.Node{Label: common.LabelCompany, Properties: map[string]string{"name": "Acme S.p.A."}},
			"",
			"company_acme",
		},
		{
			"statutory board",
			&common.Node{Label: common.LabelBoard, Properties: map[string]string{"type": "Board of Statutory Auditors"}},
			"Acme S.p.A.",
			"board_of_statutory_auditors_acme",
		},
		{
			"committee word excluded",
			&common.Node{Label: common.LabelCommittee, Properties: map[string]string{"name": "Audit Committee"}},
			"Acme S.p.A.",
			"committee_audit_acme",
		},
		{
			"auditor",
			&common.Node{Label: common.LabelAuditor, Properties: map[string]string{"name": "Audit & Co. plc"}},
			"Acme",
			"auditor_audit_co",
		},
		{
			"address street compacted",
			&common.Node{Label: common.LabelAddress, Properties: map[string]string{"city": "Milan", "street": "Via Manzoni, 38"}},
			"Acme",
			"address_milan_viamanzoni38",
		},
		{
			"missing key property keeps old id",
			&common.Node{Label: common.LabelPerson, Properties: map[string]string{"role": "CEO"}},
			"Acme",
			"",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveID(tc.node, tc.company); got != tc.want {
				t.Fatalf("deriveID = %q, want %q", got, tc.want)
			}
		})
	}
}

func nodeIDs(g *common.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	return ids
}
