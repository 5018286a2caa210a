// Package agent orchestrates a single question-answer exchange: it decides
// whether the query needs fresh data, optionally runs a web search, folds the
// findings into a prompt and asks the language model for the final answer.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ameleshko/otvet/internal/classify"
	"github.com/ameleshko/otvet/internal/composer"
	"github.com/ameleshko/otvet/internal/llm"
)

// ErrEmptyQuery is returned by Ask when the query is empty or whitespace.
// It is the only error Ask produces; every other failure degrades into a
// usable response instead.
var ErrEmptyQuery = errors.New("agent: empty query")

const apologyResponse = "Извините, произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."

// Searcher runs a web search and returns formatted findings as text.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Completer produces a completion for a fully composed prompt.
type Completer interface {
	Query(ctx context.Context, input, system string) (string, error)
}

// Options adjust a single Ask call.
type Options struct {
	// TestMode answers from a canned response table without touching any
	// external API.
	TestMode bool
}

// Exchange is the outcome of one Ask call. Response is never empty.
type Exchange struct {
	Response        string
	SearchPerformed bool
}

// Agent wires the classification policy, the search client, the prompt
// composer and the language model into one pipeline.
type Agent struct {
	policy   classify.Policy
	searcher Searcher
	llm      Completer
	composer *composer.Composer
	system   string
}

// New creates an Agent. searcher may be nil, in which case every query is
// answered from the model's own knowledge. An empty system prompt falls back
// to the LLM client's default.
func New(policy classify.Policy, searcher Searcher, llm Completer, comp *composer.Composer, systemPrompt string) *Agent {
	if policy == nil {
		policy = classify.Heuristic{}
	}
	return &Agent{
		policy:   policy,
		searcher: searcher,
		llm:      llm,
		composer: comp,
		system:   systemPrompt,
	}
}

// Ask processes one user query end to end. Failures of the search step fall
// back to answering without search results; a failure of the completion step
// falls back to an apology text. The caller always receives displayable text
// unless the query itself is empty.
func (a *Agent) Ask(ctx context.Context, query string, opts Options) (Exchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Exchange{}, ErrEmptyQuery
	}

	if opts.TestMode {
		return Exchange{Response: llm.TestResponse(query)}, nil
	}

	decision := a.policy.Classify(ctx, query)

	var searchText string
	performed := false
	if decision.NeedsSearch && a.searcher != nil {
		searchQuery := query
		if decision.RewrittenQuery != "" {
			searchQuery = decision.RewrittenQuery
		}
		slog.Info("running search", "query", searchQuery)
		text, err := a.searcher.Search(ctx, searchQuery)
		if err != nil {
			slog.Warn("search failed, answering without results", "error", err)
		} else if strings.TrimSpace(text) != "" {
			searchText = text
			performed = true
		}
	}

	prompt := a.composer.Combine(query, searchText)
	answer, err := a.llm.Query(ctx, prompt, a.system)
	if err != nil {
		slog.Error("completion failed", "error", err)
		return Exchange{Response: apologyResponse, SearchPerformed: performed}, nil
	}
	if strings.TrimSpace(answer) == "" {
		answer = apologyResponse
	}
	return Exchange{Response: answer, SearchPerformed: performed}, nil
}
