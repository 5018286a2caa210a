// Package search talks to a search-augmented completion API (Perplexity chat
// completions) and restructures its prose answers into a labeled text block
// for the prompt composer.
package search

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
	defaultBaseURL = "https://api.perplexity.ai"

	searchTimeout   = 30 * time.Second
	fallbackTimeout = 20 * time.Second

	searchMaxTokens   = 1500
	fallbackMaxTokens = 800

	// Fallback answers shorter than this are treated as noise, not results.
	minAnswerRunes = 10
)

// searchSystemPrompt demands verified, sourced, dated facts in the numbered
// three-section shape SplitIntoSections knows how to take apart.
const searchSystemPrompt = `Ты - поисковый ассистент, который ищет только фактическую и актуальную информацию в интернете. ` +
	`Предоставляй только достоверную и актуальную информацию без предположений и прогнозов. ` +
	`Если информация запрашивается на будущую дату, ищи самые свежие данные и тренды. ` +
	`Всегда указывай источники и даты их публикации. ` +
	`ВАЖНО: При запросах о рейтингах, списках и 'топах' компаний, продуктов или людей, ` +
	`обязательно используй последние доступные данные - НЕ ДЕЛАЙ ПРЕДПОЛОЖЕНИЙ О БУДУЩЕМ. ` +
	"Структурируй ответ четко в формате: \n\n" +
	"1) КРАТКИЙ ФАКТИЧЕСКИЙ ОТВЕТ (без рассуждений)\n\n" +
	"2) ПОДРОБНАЯ ИНФОРМАЦИЯ (с цифрами, датами и фактами)\n\n" +
	"3) ИСТОЧНИКИ (с указанием дат публикации)\n\n" +
	`При отсутствии точной информации на запрашиваемую дату в будущем, ` +
	`укажи самые последние доступные данные и объясни, что это самая актуальная информация.`

// Client communicates with the search-augmented completion API.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	fallbackModel string
	httpClient    *http.Client
}

// NewClient creates a search client with the given API key and models.
func NewClient(apiKey, model, fallbackModel string) *Client {
	return &Client{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		model:         model,
		fallbackModel: fallbackModel,
		httpClient:    &http.Client{},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, model, fallbackModel, baseURL string) *Client {
	c := NewClient(apiKey, model, fallbackModel)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Search runs the full search pipeline for a query: split into sub-queries,
// enhance each, issue one completion request per sub-query, and restructure
// the answers. Any failure of the primary request path delegates the entire
// original query to the fallback path exactly once.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("search: API key is missing")
	}

	subqueries := SplitQuery(query)

	type subResult struct {
		query  string
		result string
	}
	results := make([]subResult, 0, len(subqueries))

	for _, sub := range subqueries {
		enhanced := EnhanceQuery(sub)
		slog.Debug("issuing search sub-query", "query", sub, "enhanced_len", len(enhanced))

		req := chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: searchSystemPrompt},
				{Role: "user", Content: enhanced},
			},
			Temperature: 0.2,
			MaxTokens:   searchMaxTokens,
		}

		content, err := c.complete(ctx, req, searchTimeout)
		if err != nil {
			slog.Warn("primary search failed, delegating to fallback", "error", err)
			return c.fallback(ctx, query)
		}

		results = append(results, subResult{query: sub, result: structureResult(content)})
	}

	if len(results) == 1 {
		return results[0].result, nil
	}

	var sb strings.Builder
	sb.WriteString("=== РЕЗУЛЬТАТЫ ПОИСКА ===\n\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "ЗАПРОС: %s\n\n%s\n\n---\n\n", r.query, r.result)
	}
	return sb.String(), nil
}

// structureResult reshapes a prose answer into labeled summary/detail blocks
// and appends any extracted source URLs. Unstructured answers pass through
// unchanged rather than losing content.
func structureResult(content string) string {
	sections := SplitIntoSections(content)
	if sections.Summary == "" || sections.Detail == "" {
		return appendSources(content, sections.Sources)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "КРАТКИЙ ОТВЕТ:\n%s\n\n", sections.Summary)
	fmt.Fprintf(&sb, "ПОДРОБНАЯ ИНФОРМАЦИЯ:\n%s\n", sections.Detail)
	return appendSources(sb.String(), sections.Sources)
}

func appendSources(text, sourceSection string) string {
	scope := sourceSection
	if scope == "" && mentionsSources(text) {
		scope = text
	}
	urls := ExtractURLs(scope)
	if len(urls) == 0 {
		return text
	}
	if len(urls) > 5 {
		urls = urls[:5]
	}
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\nИсточники информации:\n")
	for _, u := range urls {
		fmt.Fprintf(&sb, "- %s\n", u)
	}
	return sb.String()
}

// fallback issues a single, simpler request: no system prompt, no splitting,
// a smaller token budget, and a lower temperature.
func (c *Client) fallback(ctx context.Context, query string) (string, error) {
	slog.Info("using fallback search", "query", query)

	req := chatRequest{
		Model: c.fallbackModel,
		Messages: []chatMessage{
			{Role: "user", Content: "Найди информацию по запросу: " + query},
		},
		Temperature: 0.1,
		MaxTokens:   fallbackMaxTokens,
	}

	content, err := c.complete(ctx, req, fallbackTimeout)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return "", errors.New(fallbackStatusMessage(se.status))
		}
		return "", fmt.Errorf("резервный поиск не удался: %w", err)
	}

	if utf8.RuneCountInString(strings.TrimSpace(content)) < minAnswerRunes {
		return "", errors.New("по запросу не найдено достаточно информации")
	}
	return content, nil
}

func fallbackStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "некорректный поисковый запрос"
	case http.StatusUnauthorized:
		return "поиск недоступен: неверный ключ API"
	case http.StatusTooManyRequests:
		return "поиск временно недоступен: превышен лимит запросов"
	default:
		return fmt.Sprintf("ошибка поискового сервиса (HTTP %d)", status)
	}
}

// statusError marks a non-success HTTP response so the fallback layer can map
// it to a user-facing message.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func (c *Client) complete(ctx context.Context, req chatRequest, timeout time.Duration) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &statusError{status: resp.StatusCode, body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
