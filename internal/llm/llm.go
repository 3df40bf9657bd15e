// Package llm wraps the chat-completion providers used by the briefing and
// analysis features. Every call asks the model for a single JSON object.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the provider answers without content.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrNoJSON is returned when no JSON object can be found in the reply.
	ErrNoJSON = errors.New("llm: response contains no JSON object")
)

// Image is an inline picture attached to a vision request.
type Image struct {
	MimeType string
	// Base64 is the encoded payload without a data: prefix
	Base64 string
}

// DataURL renders the image as a data URL.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MimeType, i.Base64)
}

// Request is one JSON-mode completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// Image switches the request to the vision model
	Image *Image
}

// Client completes prompts with a JSON object reply.
type Client interface {
	// CompleteJSON returns the raw JSON text produced by the model.
	CompleteJSON(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs.
	Name() string
}

// ExtractJSON returns the outermost JSON object in content. Models sometimes
// wrap their answer in markdown fences or prose even in JSON mode.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyResponse
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return content[start : end+1], nil
}

// Decode extracts the JSON object from content and unmarshals it into v.
func Decode(content string, v interface{}) error {
	raw, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse AI response: %w", err)
	}
	return nil
}
