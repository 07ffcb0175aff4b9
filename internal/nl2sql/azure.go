package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fallbackSQL is returned without any network I/O when no deployment is
// configured, so the service stays usable end to end in development.
const fallbackSQL = "SELECT 1 AS id;"

const systemPrompt = "You are a SQL assistant. Generate a single SQL query for PostgreSQL " +
	"given the user's request. Only return SQL. Use provided schema when relevant."

type AzureConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// AzureTranslator calls an Azure OpenAI chat-completions deployment.
type AzureTranslator struct {
	endpoint    string
	apiKey      string
	deployment  string
	apiVersion  string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewAzureTranslator(cfg AzureConfig) *AzureTranslator {
	deployment := strings.TrimSpace(cfg.Deployment)
	if deployment == "" {
		deployment = "gpt-4o-mini"
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = "2024-06-01"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AzureTranslator{
		endpoint:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		deployment:  deployment,
		apiVersion:  apiVersion,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}
}

func (t *AzureTranslator) configured() bool {
	return t.endpoint != "" && t.apiKey != ""
}

func (t *AzureTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	if !t.configured() {
		return Result{SQL: fallbackSQL, Provider: "fallback", Deployment: t.deployment}, nil
	}

	body, err := json.Marshal(t.buildPayload(req))
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", t.endpoint, t.deployment, t.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("empty chat completion choices")
	}

	sql := stripMarkdownSQL(parsed.Choices[0].Message.Content)
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{
		SQL:        sql,
		Provider:   "azure-openai",
		Deployment: t.deployment,
	}, nil
}

func (t *AzureTranslator) buildPayload(req Request) map[string]any {
	userContent := strings.TrimSpace(req.Prompt)
	if strings.TrimSpace(req.SchemaHint) != "" {
		userContent = fmt.Sprintf("Schema:\n%s\n\nRequest:\n%s", req.SchemaHint, userContent)
	}
	return map[string]any{
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userContent},
		},
		"temperature": t.temperature,
		"max_tokens":  t.maxTokens,
	}
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return strings.Trim(trimmed, "`")
}
