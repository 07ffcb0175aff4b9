package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranslateFallbackWhenUnconfigured(t *testing.T) {
	translator := NewAzureTranslator(AzureConfig{})
	result, err := translator.Translate(context.Background(), Request{Prompt: "show users"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT 1 AS id;" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Provider != "fallback" {
		t.Fatalf("Provider = %q", result.Provider)
	}
}

func TestTranslateCallsDeployment(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "```sql\nSELECT id FROM users;\n```"}},
			},
		})
	}))
	defer server.Close()

	translator := NewAzureTranslator(AzureConfig{
		Endpoint:   server.URL,
		APIKey:     "k1",
		Deployment: "gpt-4o-mini",
	})

	result, err := translator.Translate(context.Background(), Request{
		Prompt:     "list user ids",
		SchemaHint: "users(id int)",
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT id FROM users;" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Provider != "azure-openai" {
		t.Fatalf("Provider = %q", result.Provider)
	}
	if gotPath != "/openai/deployments/gpt-4o-mini/chat/completions?api-version=2024-06-01" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "k1" {
		t.Fatalf("api-key = %q", gotKey)
	}
	if gotPayload["max_tokens"] != float64(400) {
		t.Fatalf("max_tokens = %v", gotPayload["max_tokens"])
	}
	messages, ok := gotPayload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", gotPayload["messages"])
	}
	user := messages[1].(map[string]any)
	if !strings.Contains(user["content"].(string), "Schema:\nusers(id int)") {
		t.Fatalf("user content = %q", user["content"])
	}
}

func TestTranslateSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	translator := NewAzureTranslator(AzureConfig{Endpoint: server.URL, APIKey: "k1"})
	if _, err := translator.Translate(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestTranslateRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	translator := NewAzureTranslator(AzureConfig{Endpoint: server.URL, APIKey: "k1"})
	if _, err := translator.Translate(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestStripMarkdownSQL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"```sql\nSELECT 1;\n```", "SELECT 1;"},
		{"```\nSELECT 1;\n```", "SELECT 1;"},
		{"`SELECT 1;`", "SELECT 1;"},
		{"  SELECT 1;  ", "SELECT 1;"},
	}
	for _, tt := range tests {
		if got := stripMarkdownSQL(tt.raw); got != tt.want {
			t.Fatalf("stripMarkdownSQL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
