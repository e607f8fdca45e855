package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiRetryDelay = 6 * time.Second
	geminiMaxRetries = 3

	// geminiMaxInput truncates very large files before prompting; entity
	// annotation does not need the whole file.
	geminiMaxInput = 16 * 1024
)

const geminiPrompt = `Extract named entities from the following file content.
Report one entity per line as TEXT|LABEL, where LABEL is one of
PERSON, ORG, PRODUCT, URL, EMAIL, VERSION, OTHER.
Output nothing else.

`

// Gemini extracts entities with a Gemini model. Optional: the pipeline
// falls back to the heuristic extractor when no API key is configured.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed extractor.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Extract prompts the model and parses TEXT|LABEL lines. Rate-limit
// responses are retried with a fixed delay.
func (g *Gemini) Extract(ctx context.Context, text string) ([]Entity, error) {
	if len(text) > geminiMaxInput {
		text = text[:geminiMaxInput]
	}
	contents := genai.Text(geminiPrompt + text)

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt <= geminiMaxRetries; attempt++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.model, contents, nil)
		if err == nil {
			break
		}
		if !isRateLimitError(err) || attempt == geminiMaxRetries {
			return nil, fmt.Errorf("generate entities: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(geminiRetryDelay):
		}
	}

	return parseEntityLines(resp.Text()), nil
}

// parseEntityLines converts "TEXT|LABEL" lines into entities, ignoring
// malformed lines.
func parseEntityLines(out string) []Entity {
	var entities []Entity
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		text, label, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		label = strings.ToUpper(strings.TrimSpace(label))
		if text == "" || label == "" {
			continue
		}
		entities = append(entities, Entity{Text: text, Label: label})
	}
	return entities
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "RESOURCE_EXHAUSTED")
}
