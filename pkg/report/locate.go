package report

import (
	"context"
	"fmt"
	"strings"

	"insiderkg/pkg/ai"
)

// Locator resolves the URL of the latest corporate governance report for a
// company. An empty URL means no report could be located.
type Locator interface {
	Locate(ctx context.Context, companyName string) (string, error)
}

// StaticLocator returns a preconfigured URL, used when the caller already
// knows where the report lives.
type StaticLocator struct {
	URL string
}

func (l StaticLocator) Locate(ctx context.Context, companyName string) (string, error) {
	return l.URL, nil
}

// AgentLocator asks the chat model for the report URL. It is a best-effort
// stand-in for a real crawler: the model may answer with a stale or wrong
// URL, which surfaces downstream as a download failure.
type AgentLocator struct {
	Client ai.ReportAIClient
}

func (l AgentLocator) Locate(ctx context.Context, companyName string) (string, error) {
	answer, err := l.Client.GenerateCompletion(ctx, fmt.Sprintf(ai.SearchPrompt, companyName))
	if err != nil {
		return "", fmt.Errorf("report search failed: %w", err)
	}

	url := strings.TrimSpace(answer)
	url = strings.Trim(url, "\"'`")
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("report search returned a non-URL answer: %q", url)
	}
	return url, nil
}
