package queue

import (
	"context"
	"testing"
)

func TestProcessIngestRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{not json"},
		{"missing company", `{"url": "https://example.com/report.pdf"}`},
		{"empty company", `{"company": ""}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := ProcessIngest(context.Background(), IngestDeps{}, tc.body); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
