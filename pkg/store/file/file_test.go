package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"insiderkg/pkg/common"
)

func TestSaveWritesCompanyDocument(t *testing.T) {
	dir := t.TempDir()
	g := common.NewGraph()
	g.Nodes["company_acme"] = &common.Node{
		ID: "company_acme", Label: common.LabelCompany,
		Properties: map[string]string{"name": "Acme S.p.A."},
	}
	g.Nodes["person_mario_rossi"] = &common.Node{
		ID: "person_mario_rossi", Label: common.LabelPerson,
		Properties: map[string]string{"name": "Mario Rossi"},
	}
	key := common.EdgeKey{Source: "person_mario_rossi", Type: common.EdgeHoldsPosition, Dest: "company_acme"}
	g.Edges[key] = &common.Edge{
		Source: "person_mario_rossi", Type: common.EdgeHoldsPosition, Dest: "company_acme",
		Properties: map[string]string{"role": "CEO"},
	}

	store := NewStore(dir)
	if err := store.Save(context.Background(), g); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "company_acme.json"))
	if err != nil {
		t.Fatalf("results file: %v", err)
	}
	var doc common.GraphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Fatalf("document shape: %d nodes, %d edges", len(doc.Nodes), len(doc.Edges))
	}
}

func TestSaveDeterministicBytes(t *testing.T) {
	build := func() *common.Graph {
		g := common.NewGraph()
		for _, id := range []string{"person_b", "person_a", "company_acme", "board_of_directors_acme"} {
			label := common.LabelPerson
			switch id {
			case "company_acme":
				label = common.LabelCompany
			case "board_of_directors_acme":
				label = common.LabelBoard
			}
			g.Nodes[id] = &common.Node{ID: id, Label: label, Properties: map[string]string{"name": id}}
		}
		for i, src := range []string{"person_a", "person_b"} {
			key := common.EdgeKey{Source: src, Type: common.EdgeMemberOf, Dest: "board_of_directors_acme", Seq: i}
			g.Edges[key] = &common.Edge{
				Source: src, Type: common.EdgeMemberOf, Dest: "board_of_directors_acme",
				Properties: map[string]string{"role": "Director"},
			}
		}
		return g
	}

	dir := t.TempDir()
	store := NewStore(dir)

	var previous []byte
	for i := 0; i < 5; i++ {
		if err := store.Save(context.Background(), build()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "company_acme.json"))
		if err != nil {
			t.Fatalf("results file: %v", err)
		}
		if previous != nil && string(data) != string(previous) {
			t.Fatal("identical graphs produced different result bytes")
		}
		previous = data
	}
}

func TestSaveFallbackFileName(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(context.Background(), common.NewGraph()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "graph.json")); err != nil {
		t.Fatalf("fallback file: %v", err)
	}
}
