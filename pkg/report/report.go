// Package report handles acquisition of corporate governance reports:
// locating the report URL, downloading it, extracting readable text from
// HTML or PDF content, and splitting the text into chunks for extraction.
package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

// Report is a downloaded governance report reduced to plain text.
type Report struct {
	URL  string
	Text string
}

// Downloader fetches a report URL and extracts its text content. HTML pages
// go through readability to isolate the main content; PDF documents are
// converted with pdftotext (with an in-process fallback).
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a Downloader. A nil client uses http.DefaultClient.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{client: client}
}

// Download fetches the report at rawURL and returns its cleaned text.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	var text string
	switch {
	case strings.Contains(contentType, "pdf") || isPDF(body):
		text, err = parsePDF(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("failed to extract pdf text: %w", err)
		}
	case strings.Contains(contentType, "text/html"):
		text, err = parseHTML(body, rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to extract html text: %w", err)
		}
	default:
		text = string(body)
	}

	text = CleanText(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("report at %s produced no text", rawURL)
	}

	return &Report{URL: rawURL, Text: text}, nil
}

func isPDF(body []byte) bool {
	return len(body) >= 5 && string(body[:5]) == "%PDF-"
}

func parseHTML(body []byte, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), u)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return "", fmt.Errorf("failed to render article text: %w", err)
	}
	return builder.String(), nil
}
