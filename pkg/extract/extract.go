// Package extract runs the per-chunk LLM extraction fan-out: every report
// chunk is analyzed independently and concurrently, producing a graph
// fragment or a per-chunk error. Failures are captured, never propagated:
// partial success is the normal operating mode.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"insiderkg/internal/util"
	"insiderkg/pkg/ai"
	"insiderkg/pkg/common"
	"insiderkg/pkg/logger"
	"insiderkg/pkg/report"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxConcurrent bounds the number of extraction calls in flight.
	DefaultMaxConcurrent = 5
	// DefaultRetryAttempts is how many times one chunk extraction is tried
	// before its failure is recorded.
	DefaultRetryAttempts = 3
)

// DefaultRetry returns the backoff policy used when none is configured:
// exponential delays starting at one second, capped at thirty seconds.
func DefaultRetry() util.BackoffPolicy {
	return util.ExponentialBackoff(DefaultRetryAttempts, time.Second, 30*time.Second)
}

// Result is the outcome of one chunk extraction. Exactly one of Fragment and
// Err is set.
type Result struct {
	Index    int
	Fragment *common.Fragment
	Err      error
}

// Extractor fans report chunks out to the AI client with bounded concurrency
// and collects per-chunk results.
type Extractor struct {
	client        ai.ReportAIClient
	maxConcurrent int
	retry         util.BackoffPolicy
}

// NewExtractorParams defines the configuration for creating an Extractor.
type NewExtractorParams struct {
	Client        ai.ReportAIClient
	MaxConcurrent int
	Retry         util.BackoffPolicy
}

// NewExtractor creates an Extractor. MaxConcurrent defaults to
// DefaultMaxConcurrent when non-positive; a zero Retry policy takes
// DefaultRetry.
func NewExtractor(params NewExtractorParams) *Extractor {
	maxConcurrent := params.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	retry := params.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetry()
	}
	return &Extractor{
		client:        params.Client,
		maxConcurrent: maxConcurrent,
		retry:         retry,
	}
}

// ExtractAll analyzes all chunks and returns one Result per chunk, sorted by
// chunk index. All chunks are launched together and awaited jointly; a
// failing chunk never cancels its siblings.
func (e *Extractor) ExtractAll(ctx context.Context, chunks []report.TextChunk) []Result {
	results := make([]Result, len(chunks))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrent)

	for _, chunk := range chunks {
		c := chunk
		g.Go(func() error {
			fragment, err := e.extractChunk(ctx, c)

			mu.Lock()
			results[c.Index] = Result{Index: c.Index, Fragment: fragment, Err: err}
			mu.Unlock()

			if err != nil {
				logger.Error("Chunk extraction failed", "chunk", c.Index, "err", err)
			} else {
				logger.Debug("Chunk extracted", "chunk", c.Index,
					"nodes", len(fragment.Nodes), "edges", len(fragment.Edges))
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

func (e *Extractor) extractChunk(ctx context.Context, chunk report.TextChunk) (*common.Fragment, error) {
	prompt := fmt.Sprintf("Analyze this chunk of the corporate governance report:\n\n**CHUNK %d**:\n\"\"\"\n%s\n\"\"\"", chunk.Index, chunk.Text)

	fragment, err := util.RetryValue(ctx, e.retry, func(ctx context.Context) (*common.Fragment, error) {
		var res common.Fragment
		err := e.client.GenerateCompletionWithFormat(
			ctx,
			"extract_governance_graph",
			"Extract governance graph nodes and edges from a report chunk.",
			prompt,
			&res,
			ai.WithSystemPrompts(ai.ExtractPrompt),
		)
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}

	sanitizeFragment(fragment)
	return fragment, nil
}

// sanitizeFragment enforces the fragment schema contract: nodes need an id
// and a label, edges need endpoints and a type. Property maps are always
// non-nil afterwards.
func sanitizeFragment(f *common.Fragment) {
	nodes := f.Nodes[:0]
	for _, n := range f.Nodes {
		n.ID = strings.TrimSpace(n.ID)
		n.Label = strings.TrimSpace(n.Label)
		if n.ID == "" || n.Label == "" {
			continue
		}
		if n.Properties == nil {
			n.Properties = make(map[string]string)
		}
		nodes = append(nodes, n)
	}
	f.Nodes = nodes

	edges := f.Edges[:0]
	for _, e := range f.Edges {
		e.Source = strings.TrimSpace(e.Source)
		e.Dest = strings.TrimSpace(e.Dest)
		e.Type = strings.TrimSpace(e.Type)
		if e.Source == "" || e.Dest == "" || e.Type == "" {
			continue
		}
		if e.Properties == nil {
			e.Properties = make(map[string]string)
		}
		edges = append(edges, e)
	}
	f.Edges = edges
}
