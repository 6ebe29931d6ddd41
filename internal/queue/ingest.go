package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"insiderkg/internal/storage"
	"insiderkg/pkg/ai"
	"insiderkg/pkg/extract"
	"insiderkg/pkg/logger"
	"insiderkg/pkg/report"
	"insiderkg/pkg/store"
	"insiderkg/pkg/workflow"
)

// IngestMsg asks the worker to ingest one company's governance report.
// URL is optional; when empty the report is located via web search.
type IngestMsg struct {
	Company string `json:"company"`
	URL     string `json:"url,omitempty"`
}

// IngestDeps carries the long-lived clients a worker shares across
// messages. Each message still gets its own workflow run.
type IngestDeps struct {
	AIClient      ai.ReportAIClient
	Stores        []store.GraphStore
	Archive       *s3.Client
	MaxConcurrent int
}

// ProcessIngest handles one ingest message end to end. A returned error
// sends the message to the retry queue.
func ProcessIngest(ctx context.Context, deps IngestDeps, body string) error {
	var msg IngestMsg
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode ingest message: %w", err)
	}
	if msg.Company == "" {
		return fmt.Errorf("ingest message missing company name")
	}

	var locator report.Locator
	if msg.URL != "" {
		locator = report.StaticLocator{URL: msg.URL}
	} else {
		locator = report.AgentLocator{Client: deps.AIClient}
	}

	w := workflow.NewWorkflow(workflow.NewWorkflowParams{
		Locator:    locator,
		Downloader: report.NewDownloader(nil),
		Chunker:    report.NewChunker(report.DefaultMaxCharacters, report.DefaultOverlap),
		Extractor: extract.NewExtractor(extract.NewExtractorParams{
			Client:        deps.AIClient,
			MaxConcurrent: deps.MaxConcurrent,
		}),
		Stores: deps.Stores,
	})

	summary, graph, err := w.Run(ctx, msg.Company)
	if err != nil {
		return err
	}

	if deps.Archive != nil {
		if err := archiveResult(ctx, deps.Archive, summary, graph.Document()); err != nil {
			logger.Warn("Failed to archive result", "company", msg.Company, "err", err)
		}
	}
	return nil
}

func archiveResult(ctx context.Context, client *s3.Client, summary *workflow.Summary, doc any) error {
	payload := map[string]any{
		"summary": summary,
		"graph":   doc,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode archive payload: %w", err)
	}
	key, err := storage.PutResult(ctx, client, summary.RunID, data)
	if err != nil {
		return err
	}
	logger.Info("Result archived", "key", key)
	return nil
}
