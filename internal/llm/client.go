// Package llm talks to an Anthropic-style messages endpoint: one completion
// request per call, explicit errors, no retries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-haiku-20240307"
	apiVersion     = "2023-06-01"

	queryTimeout     = 45 * time.Second
	detectionTimeout = 15 * time.Second

	answerMaxTokens    = 1500
	detectionMaxTokens = 300

	// Oversized inputs are truncated, not rejected.
	maxInputChars  = 8000
	maxSystemChars = 800
)

// defaultSystemPrompt is used when the caller supplies none.
const defaultSystemPrompt = `Ты - полезный ассистент, отвечающий на русском языке.
Если информация может быть устаревшей или тебе нужны актуальные данные для ответа - явно об этом сообщи.
Отвечай точно, информативно и полезно.`

// detectionSystemPrompt asks the model to self-classify search necessity:
// ДА/НЕТ on the first line, an optimized search query on the second.
const detectionSystemPrompt = `Ты - полезный ассистент, который анализирует запросы.
Твоя задача - определить, требуется ли для ответа на запрос актуальная информация из интернета.
Если запрос требует актуальные данные о погоде, курсах валют, ценах, новостях, рейтингах или других
динамически меняющихся данных - ответь "ДА" в первой строке.
Если запрос касается общих знаний, определений, неизменной информации, принципов работы чего-либо или
исторических фактов, ответь "НЕТ" в первой строке.
После этого на новой строке напиши оптимизированный поисковый запрос, если поиск нужен.
Отвечай только в указанном формате.`

// Detection is the result of a query-with-detection call: the model's answer
// plus its verdict on whether a search should back it up.
type Detection struct {
	Text         string
	SearchNeeded bool
	SearchQuery  string
}

// Client communicates with the completion API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a completion client with the given API key and model.
// An empty model selects the default.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
		httpClient: &http.Client{},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Query sends one completion request and returns the answer text. Non-success
// statuses and transport failures come back as descriptive errors; the call is
// never retried.
func (c *Client) Query(ctx context.Context, input, system string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("llm: API key is missing")
	}

	input, system = truncate(input, system)

	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   answerMaxTokens,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: input}},
		Temperature: 0.2,
	}
	return c.complete(ctx, req, queryTimeout)
}

// QueryWithDetection first asks the model whether the query needs a web
// search, then requests the answer itself. A malformed or failed detection
// call defaults to search needed with the original input as the search query;
// only a failure of the answer request is reported as an error.
func (c *Client) QueryWithDetection(ctx context.Context, input, system string) (Detection, error) {
	if c.apiKey == "" {
		return Detection{}, errors.New("llm: API key is missing")
	}

	input, system = truncate(input, system)
	det := c.detectSearchNeeds(ctx, input)

	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   answerMaxTokens,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: input}},
		Temperature: 0.2,
	}
	text, err := c.complete(ctx, req, queryTimeout)
	if err != nil {
		return Detection{}, err
	}
	det.Text = text
	return det, nil
}

// DetectSearch asks the model whether the query needs fresh data from the
// web. It never reports an error: any malfunction counts as search needed.
func (c *Client) DetectSearch(ctx context.Context, input string) Detection {
	input, _ = truncate(input, "")
	return c.detectSearchNeeds(ctx, input)
}

func (c *Client) detectSearchNeeds(ctx context.Context, input string) Detection {
	// Fail-open on every malfunction: an extra search is cheaper than a
	// stale answer.
	failOpen := Detection{SearchNeeded: true, SearchQuery: input}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: detectionMaxTokens,
		System:    detectionSystemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: input}},
	}

	raw, err := c.complete(ctx, req, detectionTimeout)
	if err != nil {
		slog.Warn("search detection call failed, defaulting to search", "error", err)
		return failOpen
	}

	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		slog.Warn("unexpected search detection format, defaulting to search", "response", raw)
		return failOpen
	}

	needed := strings.Contains(strings.ToUpper(lines[0]), "ДА")
	query := input
	if needed && len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		query = strings.TrimSpace(lines[1])
	}
	slog.Debug("search detection", "needed", needed, "query", query)
	return Detection{SearchNeeded: needed, SearchQuery: query}
}

func truncate(input, system string) (string, string) {
	if system == "" {
		system = defaultSystemPrompt
	} else if utf8.RuneCountInString(system) > maxSystemChars {
		slog.Warn("system prompt too long, truncating", "chars", utf8.RuneCountInString(system))
		system = truncateRunes(system, maxSystemChars)
	}
	if utf8.RuneCountInString(input) > maxInputChars {
		slog.Warn("input too long, truncating", "chars", utf8.RuneCountInString(input))
		input = truncateRunes(input, maxInputChars)
	}
	return input, system
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (c *Client) complete(ctx context.Context, req messagesRequest, timeout time.Duration) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", errors.New("response contains no content blocks")
	}
	return parsed.Content[0].Text, nil
}
