// Package workflow orchestrates a full report ingestion run: locate the
// report, download and chunk it, extract graph fragments, fuse them into
// one canonical graph, validate, annotate, and persist.
package workflow

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"insiderkg/pkg/common"
	"insiderkg/pkg/extract"
	"insiderkg/pkg/fusion"
	"insiderkg/pkg/logger"
	"insiderkg/pkg/report"
	"insiderkg/pkg/store"
	"insiderkg/pkg/validate"
)

// Downloader fetches and parses a report from a URL.
type Downloader interface {
	Download(ctx context.Context, url string) (*report.Report, error)
}

// Chunker partitions report text into extraction-sized chunks.
type Chunker interface {
	Chunk(text string) ([]report.TextChunk, error)
}

// Extractor turns chunks into graph fragments, one result per chunk.
type Extractor interface {
	ExtractAll(ctx context.Context, chunks []report.TextChunk) []extract.Result
}

// Summary describes a completed run for logging and result reporting.
type Summary struct {
	RunID        string        `json:"run_id"`
	Company      string        `json:"company"`
	SourceURL    string        `json:"source_url"`
	Chunks       int           `json:"chunks"`
	ChunksFailed int           `json:"chunks_failed"`
	Nodes        int           `json:"nodes"`
	Edges        int           `json:"edges"`
	Duration     time.Duration `json:"duration"`
}

// Workflow wires the ingestion stages together. Each run owns its own
// graph and identity map; a Workflow itself holds no per-run state and is
// safe to reuse across runs.
type Workflow struct {
	locator    report.Locator
	downloader Downloader
	chunker    Chunker
	extractor  Extractor
	engine     *fusion.Engine
	validator  *validate.Validator
	stores     []store.GraphStore
}

type NewWorkflowParams struct {
	Locator    report.Locator
	Downloader Downloader
	Chunker    Chunker
	Extractor  Extractor
	Validator  *validate.Validator
	Stores     []store.GraphStore
}

func NewWorkflow(params NewWorkflowParams) *Workflow {
	validator := params.Validator
	if validator == nil {
		validator = validate.NewValidator()
	}
	return &Workflow{
		locator:    params.Locator,
		downloader: params.Downloader,
		chunker:    params.Chunker,
		extractor:  params.Extractor,
		engine:     fusion.NewEngine(),
		validator:  validator,
		stores:     params.Stores,
	}
}

// Run executes one full ingestion for a company. On persistence failure
// the validated graph is still returned alongside the error so callers
// can fall back to a local write.
func (w *Workflow) Run(ctx context.Context, company string) (*Summary, *common.Graph, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate run id: %w", err)
	}
	start := time.Now()
	logger.Info("Starting ingestion run", "run", runID, "company", company)

	url, err := w.locator.Locate(ctx, company)
	if err != nil {
		return nil, nil, &AcquisitionError{Company: company, Err: err}
	}
	if url == "" {
		return nil, nil, &AcquisitionError{Company: company, Err: fmt.Errorf("no report located")}
	}
	logger.Info("Report located", "run", runID, "url", url)

	rep, err := w.downloader.Download(ctx, url)
	if err != nil {
		return nil, nil, &AcquisitionError{Company: company, Err: err}
	}

	chunks, err := w.chunker.Chunk(rep.Text)
	if err != nil {
		return nil, nil, &AcquisitionError{Company: company, Err: fmt.Errorf("failed to chunk report: %w", err)}
	}
	logger.Info("Report chunked", "run", runID, "chunks", len(chunks), "characters", len(rep.Text))

	results := w.extractor.ExtractAll(ctx, chunks)

	graph := common.NewGraph()
	ids := fusion.IdentityMap{}
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		if err := w.engine.Fold(result.Fragment, graph, ids); err != nil {
			logger.Error("Fold failed, aborting run", "run", runID, "chunk", result.Index, "error", err)
			return nil, nil, err
		}
	}
	if len(chunks) > 0 && failed == len(chunks) {
		return nil, nil, &ExtractionError{Failed: failed, Total: len(chunks)}
	}
	logger.Info("Fragments fused", "run", runID, "failed_chunks", failed, "nodes", len(graph.Nodes), "edges", len(graph.Edges))

	if err := w.validator.Validate(graph); err != nil {
		return nil, nil, err
	}
	fusion.Annotate(graph, url)

	summary := &Summary{
		RunID:        runID,
		Company:      company,
		SourceURL:    url,
		Chunks:       len(chunks),
		ChunksFailed: failed,
		Nodes:        len(graph.Nodes),
		Edges:        len(graph.Edges),
	}

	for _, sink := range w.stores {
		if err := sink.Save(ctx, graph); err != nil {
			summary.Duration = time.Since(start)
			return summary, graph, &PersistenceError{Sink: fmt.Sprintf("%T", sink), Err: err}
		}
	}

	summary.Duration = time.Since(start)
	logger.Info("Ingestion run complete", "run", runID,
		"nodes", summary.Nodes, "edges", summary.Edges, "duration", summary.Duration)
	return summary, graph, nil
}
