// Package store persists validated governance graphs. The neo4j
// subpackage writes to a graph database, the file subpackage writes JSON
// result documents.
package store

import (
	"context"

	"insiderkg/pkg/common"
)

// GraphStore persists a validated graph. Save must be idempotent: writing
// the same graph twice converges on the same stored state instead of
// duplicating entities.
type GraphStore interface {
	Save(ctx context.Context, g *common.Graph) error
	Close(ctx context.Context) error
}
