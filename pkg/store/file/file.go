// Package file writes graph result documents as JSON files.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"insiderkg/pkg/common"
	"insiderkg/pkg/logger"
)

var reUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the graph as <dir>/<company-id>.json, creating the results
// directory if needed. The file name derives from the Company node id so
// repeated runs over the same company overwrite rather than accumulate.
func (s *Store) Save(ctx context.Context, g *common.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := g.Document()
	sortDocument(&doc)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph document: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(s.dir, s.fileName(g))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	logger.Info("Graph written to results file", "path", path, "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// sortDocument orders nodes and edges so identical graphs serialize to
// identical bytes across runs. Parallel edges sharing endpoints and type
// are ordered by their property bags.
func sortDocument(doc *common.GraphDocument) {
	sort.Slice(doc.Nodes, func(i, j int) bool {
		return doc.Nodes[i].ID < doc.Nodes[j].ID
	})
	sort.Slice(doc.Edges, func(i, j int) bool {
		a, b := doc.Edges[i], doc.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Dest != b.Dest {
			return a.Dest < b.Dest
		}
		return propsFingerprint(a.Properties) < propsFingerprint(b.Properties)
	})
}

func propsFingerprint(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
		b.WriteByte(';')
	}
	return b.String()
}

func (s *Store) fileName(g *common.Graph) string {
	name := "graph"
	for _, node := range g.Nodes {
		if node.Label == common.LabelCompany {
			name = node.ID
			break
		}
	}
	name = reUnsafe.ReplaceAllString(strings.ToLower(name), "_")
	return name + ".json"
}
