// Package nl2sql turns natural-language prompts into SQL text via an
// external chat-completions deployment. The returned SQL is opaque and
// untrusted; validating or sandboxing it is not this package's job.
package nl2sql

import "context"

type Request struct {
	Prompt     string `json:"prompt"`
	SchemaHint string `json:"schema_hint,omitempty"`
}

type Result struct {
	SQL        string `json:"sql"`
	Provider   string `json:"provider"`
	Deployment string `json:"deployment"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
