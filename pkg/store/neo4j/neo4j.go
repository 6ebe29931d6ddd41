// Package neo4j persists governance graphs to a Neo4j database using
// batched UNWIND upserts.
package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"insiderkg/pkg/common"
	"insiderkg/pkg/logger"
)

// reIdentifier guards label and relationship type names interpolated into
// Cypher, since they cannot be passed as query parameters.
var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

type NewStoreParams struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewStore connects to Neo4j and verifies connectivity before returning.
func NewStore(ctx context.Context, params NewStoreParams) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.Username, params.Password, ""), func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver, database: params.Database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Save upserts the graph in one write transaction. Nodes are batched per
// label and relationships per type, since Cypher cannot parameterize
// either. Properties merge with `+=` over rows that omit empty values, so
// an empty extraction never erases a previously stored value.
func (s *Store) Save(ctx context.Context, g *common.Graph) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	if err := s.initSchema(ctx, session, g); err != nil {
		logger.Warn("Neo4j schema init failed, continuing", "error", err)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := writeNodes(ctx, tx, g); err != nil {
			return nil, err
		}
		return nil, writeEdges(ctx, tx, g)
	})
	if err != nil {
		return fmt.Errorf("failed to write graph to neo4j: %w", err)
	}
	logger.Info("Graph persisted to Neo4j", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

// initSchema creates per-label id uniqueness constraints so MERGE upserts
// stay fast and duplicate-free across runs.
func (s *Store) initSchema(ctx context.Context, session neo4j.SessionWithContext, g *common.Graph) error {
	for _, label := range nodeLabels(g) {
		stmt := fmt.Sprintf(
			"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			label, label,
		)
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return err
		}
		if _, err := res.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

func writeNodes(ctx context.Context, tx neo4j.ManagedTransaction, g *common.Graph) error {
	byLabel := make(map[string][]map[string]any)
	for _, id := range sortedNodeIDs(g) {
		node := g.Nodes[id]
		byLabel[node.Label] = append(byLabel[node.Label], map[string]any{
			"id":    node.ID,
			"props": nonEmptyProps(node.Properties),
		})
	}

	for _, label := range sortedKeys(byLabel) {
		if !reIdentifier.MatchString(label) {
			return fmt.Errorf("invalid node label %q", label)
		}
		query := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (n:%s {id: row.id})
SET n += row.props
`, label)
		res, err := tx.Run(ctx, query, map[string]any{"rows": byLabel[label]})
		if err != nil {
			return fmt.Errorf("failed to upsert %s nodes: %w", label, err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to upsert %s nodes: %w", label, err)
		}
	}
	return nil
}

func writeEdges(ctx context.Context, tx neo4j.ManagedTransaction, g *common.Graph) error {
	byType := make(map[string][]map[string]any)
	for key, edge := range g.Edges {
		byType[edge.Type] = append(byType[edge.Type], map[string]any{
			"source": edge.Source,
			"dest":   edge.Dest,
			"seq":    key.Seq,
			"props":  nonEmptyProps(edge.Properties),
		})
	}
	for _, rows := range byType {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i]["source"] != rows[j]["source"] {
				return rows[i]["source"].(string) < rows[j]["source"].(string)
			}
			if rows[i]["dest"] != rows[j]["dest"] {
				return rows[i]["dest"].(string) < rows[j]["dest"].(string)
			}
			return rows[i]["seq"].(int) < rows[j]["seq"].(int)
		})
	}

	for _, edgeType := range sortedKeys(byType) {
		if !reIdentifier.MatchString(edgeType) {
			return fmt.Errorf("invalid relationship type %q", edgeType)
		}
		// seq keeps deliberately disambiguated parallel relationships
		// distinct across repeated runs.
		query := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (a {id: row.source})
MATCH (b {id: row.dest})
MERGE (a)-[r:%s {seq: row.seq}]->(b)
SET r += row.props
`, edgeType)
		res, err := tx.Run(ctx, query, map[string]any{"rows": byType[edgeType]})
		if err != nil {
			return fmt.Errorf("failed to upsert %s relationships: %w", edgeType, err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to upsert %s relationships: %w", edgeType, err)
		}
	}
	return nil
}

// nonEmptyProps drops empty-string values so the SET += merge never
// overwrites a stored value with nothing.
func nonEmptyProps(props map[string]string) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func nodeLabels(g *common.Graph) []string {
	seen := make(map[string]bool)
	for _, node := range g.Nodes {
		if reIdentifier.MatchString(node.Label) {
			seen[node.Label] = true
		}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func sortedNodeIDs(g *common.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys[T any](m map[string][]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
