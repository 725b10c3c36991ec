package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/metrics"
)

const (
	openAIChatURL      = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIClient calls the OpenAI chat completions API
type OpenAIClient struct {
	apiKey     string
	model      string
	endpoint   string
	retry      RetryConfig
	httpClient *http.Client
	log        *logrus.Entry
}

// OpenAIOption customizes an OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithOpenAIEndpoint points the client at a compatible server
func WithOpenAIEndpoint(url string) OpenAIOption {
	return func(o *OpenAIClient) { o.endpoint = url }
}

func WithOpenAIRetry(cfg RetryConfig) OpenAIOption {
	return func(o *OpenAIClient) { o.retry = cfg }
}

func NewOpenAIClient(apiKey, model string, opts ...OpenAIOption) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	o := &OpenAIClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: openAIChatURL,
		retry:    DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		log: logging.WithComponent("openai"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenAIClient) Name() string {
	return "openai"
}

func (o *OpenAIClient) Call(ctx context.Context, messages []Message, taskID string) (*Completion, error) {
	if o.apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}

	reqBody := map[string]interface{}{
		"model":       o.model,
		"messages":    messages,
		"temperature": 0.3,
		"response_format": map[string]string{
			"type": "json_object",
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := o.log.WithField("task", taskID)
	out, err := withBackoff(ctx, o.retry, log, func(ctx context.Context) (*Completion, error) {
		return o.do(ctx, jsonBody)
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveLLMCall(o.Name(), status, time.Since(start))
	return out, err
}

func (o *OpenAIClient) do(ctx context.Context, jsonBody []byte) (*Completion, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, permanentError{err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Engine: "OpenAI", Status: resp.StatusCode, Body: string(body)}
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, permanentError{fmt.Errorf("parse response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.New("empty OpenAI response")
	}

	if fr := chatResp.Choices[0].FinishReason; fr != "" && fr != "stop" {
		o.log.WithField("finish_reason", fr).Warn("completion did not stop cleanly")
	}

	content := chatResp.Choices[0].Message.Content
	// LLMs sometimes return ASS-style \N (line break) which is invalid JSON escape
	content = strings.ReplaceAll(content, `\N`, `\n`)

	return &Completion{Text: content, RawLog: string(body)}, nil
}
