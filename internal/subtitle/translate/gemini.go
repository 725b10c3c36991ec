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
	geminiAPIBase      = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel = "gemini-2.0-flash"
)

// ModelResolver returns the current Gemini model from settings
type ModelResolver func() string

// GeminiClient calls the Google Gemini generateContent API
type GeminiClient struct {
	apiKey        string
	modelResolver ModelResolver // dynamically resolves model from DB
	baseURL       string
	retry         RetryConfig
	httpClient    *http.Client
	log           *logrus.Entry
}

type GeminiOption func(*GeminiClient)

func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *GeminiClient) { g.baseURL = strings.TrimRight(url, "/") }
}

func WithGeminiRetry(cfg RetryConfig) GeminiOption {
	return func(g *GeminiClient) { g.retry = cfg }
}

func NewGeminiClient(apiKey string, modelResolver ModelResolver, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		apiKey:        apiKey,
		modelResolver: modelResolver,
		baseURL:       geminiAPIBase,
		retry:         DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		log: logging.WithComponent("gemini"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GeminiClient) currentModel() string {
	if g.modelResolver != nil {
		if m := g.modelResolver(); m != "" {
			return m
		}
	}
	return defaultGeminiModel
}

func (g *GeminiClient) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiRequest splits system messages into system_instruction; the rest become contents
func geminiRequest(messages []Message) map[string]interface{} {
	var system []geminiPart
	var contents []geminiContent
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, geminiPart{Text: m.Content})
		case "assistant":
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	req := map[string]interface{}{
		"contents": contents,
		"generationConfig": map[string]interface{}{
			"temperature":      0.3,
			"responseMimeType": "application/json",
		},
		"safetySettings": []map[string]string{
			{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_CIVIC_INTEGRITY", "threshold": "BLOCK_NONE"},
		},
	}
	if len(system) > 0 {
		req["system_instruction"] = map[string]interface{}{"parts": system}
	}
	return req
}

func (g *GeminiClient) Call(ctx context.Context, messages []Message, taskID string) (*Completion, error) {
	if g.apiKey == "" {
		return nil, errors.New("Gemini API key not configured")
	}

	jsonBody, err := json.Marshal(geminiRequest(messages))
	if err != nil {
		return nil, err
	}

	model := g.currentModel()
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, model)
	log := g.log.WithFields(logrus.Fields{"task": taskID, "model": model})

	start := time.Now()
	out, err := withBackoff(ctx, g.retry, log, func(ctx context.Context) (*Completion, error) {
		return g.do(ctx, url, jsonBody, log)
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveLLMCall(g.Name(), status, time.Since(start))
	return out, err
}

func (g *GeminiClient) do(ctx context.Context, url string, jsonBody []byte, log *logrus.Entry) (*Completion, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, permanentError{err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Gemini API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Engine: "Gemini", Status: resp.StatusCode, Body: string(body)}
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, permanentError{fmt.Errorf("parse response: %w", err)}
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		if geminiResp.PromptFeedback.BlockReason != "" {
			// a blocked prompt fails the same way on every attempt
			return nil, permanentError{fmt.Errorf("Gemini blocked: %s", geminiResp.PromptFeedback.BlockReason)}
		}
		log.WithField("body", string(body)).Warn("empty response body")
		return nil, errors.New("empty Gemini response")
	}

	if fr := geminiResp.Candidates[0].FinishReason; fr != "" && fr != "STOP" {
		log.WithField("finish_reason", fr).Warn("completion did not stop cleanly")
	}

	var text strings.Builder
	for _, p := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return &Completion{Text: text.String(), RawLog: string(body)}, nil
}
