// Package main provides the insiderkg CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"insiderkg/internal/queue"
	"insiderkg/internal/util"
	"insiderkg/pkg/ai"
	oai "insiderkg/pkg/ai/ollama"
	gai "insiderkg/pkg/ai/openai"
	"insiderkg/pkg/extract"
	"insiderkg/pkg/logger"
	"insiderkg/pkg/logger/console"
	"insiderkg/pkg/report"
	"insiderkg/pkg/store"
	"insiderkg/pkg/store/file"
	"insiderkg/pkg/store/neo4j"
	"insiderkg/pkg/workflow"
)

var (
	flagURL        string
	flagResultsDir string
	flagSkipDB     bool
	flagChunkSize  int
	flagOverlap    int
	flagConcurrent int
)

var rootCmd = &cobra.Command{
	Use:   "insiderkg",
	Short: "Extract corporate governance knowledge graphs from annual reports",
	Long: `insiderkg downloads a company's corporate governance report, extracts
people, boards, committees and auditors with an LLM, fuses the per-chunk
results into one validated graph, and persists it.`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <company>",
	Short: "Ingest one company's governance report",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <company>",
	Short: "Enqueue an ingestion job for the worker",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnqueue,
}

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	ingestCmd.Flags().StringVar(&flagURL, "url", "", "direct report URL (skips the search step)")
	ingestCmd.Flags().StringVar(&flagResultsDir, "results-dir", "results", "directory for JSON result documents")
	ingestCmd.Flags().BoolVar(&flagSkipDB, "skip-db", false, "skip the Neo4j write even when configured")
	ingestCmd.Flags().IntVar(&flagChunkSize, "chunk-size", report.DefaultMaxCharacters, "maximum characters per extraction chunk")
	ingestCmd.Flags().IntVar(&flagOverlap, "overlap", report.DefaultOverlap, "characters of overlap between chunks")
	ingestCmd.Flags().IntVar(&flagConcurrent, "concurrency", extract.DefaultMaxConcurrent, "maximum concurrent chunk extractions")

	enqueueCmd.Flags().StringVar(&flagURL, "url", "", "direct report URL (skips the search step)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(enqueueCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAIClient() (ai.ReportAIClient, error) {
	adapter := util.GetEnvString("AI_ADAPTER", "openai")
	if adapter == "ollama" {
		return oai.NewReportOllamaClient(oai.NewReportOllamaClientParams{
			SearchModel:     util.GetEnv("AI_SEARCH_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			BaseURL: util.GetEnvString("AI_CHAT_URL", ""),
			ApiKey:  util.GetEnvString("AI_CHAT_KEY", ""),
		})
	}
	return gai.NewReportOpenAIClient(gai.NewReportOpenAIClientParams{
		SearchModel:     util.GetEnv("AI_SEARCH_MODEL"),
		ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

		ChatURL: util.GetEnv("AI_CHAT_URL"),
		ChatKey: util.GetEnv("AI_CHAT_KEY"),
	}), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	company := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiClient, err := newAIClient()
	if err != nil {
		logger.Error("Could not create AI client", "err", err)
		return err
	}

	var locator report.Locator
	if flagURL != "" {
		locator = report.StaticLocator{URL: flagURL}
	} else {
		locator = report.AgentLocator{Client: aiClient}
	}

	stores := []store.GraphStore{file.NewStore(flagResultsDir)}
	if uri := util.GetEnvString("NEO4J_URI", ""); uri != "" && !flagSkipDB {
		graphStore, err := neo4j.NewStore(ctx, neo4j.NewStoreParams{
			URI:      uri,
			Username: util.GetEnvString("NEO4J_USER", "neo4j"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
			Database: util.GetEnvString("NEO4J_DATABASE", ""),
		})
		if err != nil {
			logger.Error("Could not connect to Neo4j", "err", err)
			return err
		}
		defer graphStore.Close(ctx)
		stores = append(stores, graphStore)
	}

	w := workflow.NewWorkflow(workflow.NewWorkflowParams{
		Locator:    locator,
		Downloader: report.NewDownloader(nil),
		Chunker:    report.NewChunker(flagChunkSize, flagOverlap),
		Extractor: extract.NewExtractor(extract.NewExtractorParams{
			Client:        aiClient,
			MaxConcurrent: flagConcurrent,
		}),
		Stores: stores,
	})

	summary, _, err := w.Run(ctx, company)
	if err != nil {
		var perErr *workflow.PersistenceError
		if errors.As(err, &perErr) && summary != nil {
			// The local results file was written before the failing
			// sink, so the run's output is not lost.
			logger.Error("Graph computed but not fully persisted", "err", err)
			return err
		}
		logger.Error("Ingestion failed", "company", company, "err", err)
		return err
	}

	metrics := aiClient.GetMetrics()
	logger.Info(
		"AI Metrics",
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
	)
	return nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	company := args[0]

	conn := queue.Init()
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open channel", "err", err)
		return err
	}
	defer ch.Close()

	data, err := json.Marshal(queue.IngestMsg{Company: company, URL: flagURL})
	if err != nil {
		return err
	}
	if err := queue.PublishFIFO(ch, queue.IngestQueue, data); err != nil {
		logger.Error("Failed to enqueue job", "company", company, "err", err)
		return err
	}
	logger.Info("Ingestion job enqueued", "company", company)
	return nil
}
