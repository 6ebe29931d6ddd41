package openai

import (
	"sync"

	"insiderkg/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ReportOpenAIClient implements ai.ReportAIClient against any
// OpenAI-compatible chat endpoint.
type ReportOpenAIClient struct {
	searchModel     string
	extractionModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewReportOpenAIClientParams defines the configuration for creating a
// ReportOpenAIClient. SearchModel handles plain completions (report URL
// lookup), ExtractionModel handles structured fragment extraction. ChatURL
// may be empty to use the default OpenAI endpoint.
type NewReportOpenAIClientParams struct {
	SearchModel     string
	ExtractionModel string

	ChatURL string
	ChatKey string
}

// NewReportOpenAIClient creates a client configured with the provided
// parameters.
func NewReportOpenAIClient(params NewReportOpenAIClientParams) *ReportOpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(params.ChatKey),
	}
	if params.ChatURL != "" {
		opts = append(opts, option.WithBaseURL(params.ChatURL))
	}
	client := openai.NewClient(opts...)

	return &ReportOpenAIClient{
		searchModel:     params.SearchModel,
		extractionModel: params.ExtractionModel,
		chatURL:         params.ChatURL,
		chatKey:         params.ChatKey,
		ChatClient:      &client,
	}
}

func (c *ReportOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

// ResetMetrics clears the accumulated usage metrics.
func (c *ReportOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the accumulated usage metrics.
func (c *ReportOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
