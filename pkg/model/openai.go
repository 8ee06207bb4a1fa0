package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pario-ai/convo/pkg/config"
	"github.com/pario-ai/convo/pkg/models"
)

const completionsPath = "/v1/chat/completions"

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// OpenAI calls an OpenAI-compatible chat completions endpoint. The prompt is
// sent as a single user message.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI creates an OpenAI model from provider settings.
func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &OpenAI{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate implements Model.
func (o *OpenAI) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	body, err := buildRequestBody(o.model, prompt, p)
	if err != nil {
		return "", err
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	res, err := doUpstreamRequest(ctx, o.client, o.baseURL, completionsPath, "application/json", headers, body)
	if err != nil {
		return "", err
	}
	if res.statusCode < 200 || res.statusCode >= 300 {
		return "", &StatusError{StatusCode: res.statusCode, Body: string(res.body)}
	}

	var resp models.ChatCompletionResponse
	if err := json.Unmarshal(res.body, &resp); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildRequestBody encodes the completion request. Sampling knobs the OpenAI
// schema lacks (top_k, repetition_penalty) and caller extras are merged in as
// top-level fields, which OpenAI-compatible servers such as vLLM accept.
func buildRequestBody(model, prompt string, p Params) ([]byte, error) {
	temperature := p.Temperature
	if !p.DoSample {
		temperature = 0
	}
	req := models.ChatCompletionRequest{
		Model:       model,
		Messages:    []models.ChatMessage{{Role: models.RoleUser, Content: prompt}},
		Temperature: &temperature,
	}
	if p.MaxLength > 0 {
		req.MaxTokens = &p.MaxLength
	}
	if p.TopP > 0 {
		req.TopP = &p.TopP
	}
	if p.NumReturnSequences > 1 {
		req.N = &p.NumReturnSequences
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	fields := make(map[string]any, len(p.Extra)+2)
	if p.TopK > 0 {
		fields["top_k"] = p.TopK
	}
	if p.RepetitionPenalty > 0 {
		fields["repetition_penalty"] = p.RepetitionPenalty
	}
	for k, v := range p.Extra {
		fields[k] = v
	}
	return mergeFields(body, fields)
}

// mergeFields sets top-level keys in a JSON object body.
func mergeFields(body []byte, fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return body, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("merge request fields: %w", err)
	}
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", k, err)
		}
		raw[k] = data
	}
	return json.Marshal(raw)
}

// upstreamResult holds the response from a single upstream attempt.
type upstreamResult struct {
	statusCode int
	body       []byte
}

// doUpstreamRequest sends a POST to an upstream provider and returns the result.
func doUpstreamRequest(ctx context.Context, client *http.Client, providerURL, path, contentType string, headers map[string]string, body []byte) (*upstreamResult, error) {
	target, err := url.Parse(providerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String()+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &upstreamResult{
		statusCode: resp.StatusCode,
		body:       respBody,
	}, nil
}
