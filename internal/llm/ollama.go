package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaConfig configures a local Ollama server.
type OllamaConfig struct {
	BaseURL     string
	TextModel   string
	VisionModel string
	HTTPClient  *http.Client
}

type OllamaClient struct {
	api         *api.Client
	textModel   string
	visionModel string
}

func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.TextModel
	}

	return &OllamaClient{
		api:         api.NewClient(u, httpClient),
		textModel:   cfg.TextModel,
		visionModel: visionModel,
	}, nil
}

func (c *OllamaClient) Name() string {
	return "ollama"
}

// CompleteJSON runs a non-streaming generate call with format=json
func (c *OllamaClient) CompleteJSON(ctx context.Context, req Request) (string, error) {
	stream := false
	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	genReq := &api.GenerateRequest{
		Model:   c.textModel,
		Prompt:  req.Prompt,
		System:  req.System,
		Format:  json.RawMessage(`"json"`),
		Stream:  &stream,
		Options: options,
	}

	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Base64)
		if err != nil {
			return "", fmt.Errorf("invalid image payload: %w", err)
		}
		genReq.Model = c.visionModel
		genReq.Images = []api.ImageData{data}
	}

	var out strings.Builder
	err := c.api.Generate(ctx, genReq, func(r api.GenerateResponse) error {
		out.WriteString(r.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}

	if strings.TrimSpace(out.String()) == "" {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}
