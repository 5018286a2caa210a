package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ameleshko/otvet/internal/classify"
	"github.com/ameleshko/otvet/internal/composer"
	"github.com/ameleshko/otvet/internal/llm"
)

var ctx = context.Background()

type stubSearcher struct {
	text    string
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) (string, error) {
	s.queries = append(s.queries, query)
	return s.text, s.err
}

type stubCompleter struct {
	answer  string
	err     error
	prompts []string
}

func (s *stubCompleter) Query(_ context.Context, input, _ string) (string, error) {
	s.prompts = append(s.prompts, input)
	return s.answer, s.err
}

func newTestAgent(t *testing.T, policy classify.Policy, searcher Searcher, completer Completer) *Agent {
	t.Helper()
	return New(policy, searcher, completer, composer.New("sonar"), "")
}

func TestAsk_EmptyQuery(t *testing.T) {
	completer := &stubCompleter{answer: "не должно быть вызвано"}
	a := newTestAgent(t, classify.Always{}, &stubSearcher{}, completer)

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := a.Ask(ctx, query, Options{})
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Ask(%q) error = %v, want ErrEmptyQuery", query, err)
		}
	}
	if len(completer.prompts) != 0 {
		t.Errorf("empty query reached the model: %v", completer.prompts)
	}
}

func TestAsk_TestModeSkipsExternalCalls(t *testing.T) {
	searcher := &stubSearcher{text: "результаты"}
	completer := &stubCompleter{answer: "ответ модели"}
	a := newTestAgent(t, classify.Always{}, searcher, completer)

	ex, err := a.Ask(ctx, "Какая погода в Москве?", Options{TestMode: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) != 0 || len(completer.prompts) != 0 {
		t.Error("test mode contacted external clients")
	}
	if ex.SearchPerformed {
		t.Error("SearchPerformed = true in test mode")
	}
	if ex.Response == "" {
		t.Error("empty test-mode response")
	}
}

func TestAsk_SearchPath(t *testing.T) {
	searcher := &stubSearcher{text: "КРАТКИЙ ОТВЕТ: в Москве солнечно."}
	completer := &stubCompleter{answer: "В Москве сегодня солнечно."}
	a := newTestAgent(t, classify.Always{}, searcher, completer)

	ex, err := a.Ask(ctx, "погода в Москве", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ex.SearchPerformed {
		t.Error("SearchPerformed = false, want true")
	}
	if ex.Response != "В Москве сегодня солнечно." {
		t.Errorf("Response = %q", ex.Response)
	}
	if len(completer.prompts) != 1 || !strings.Contains(completer.prompts[0], "в Москве солнечно") {
		t.Errorf("search results missing from prompt: %v", completer.prompts)
	}
}

func TestAsk_NoSearchPath(t *testing.T) {
	searcher := &stubSearcher{text: "не должно быть вызвано"}
	completer := &stubCompleter{answer: "Фотосинтез это процесс."}
	a := newTestAgent(t, classify.Heuristic{}, searcher, completer)

	ex, err := a.Ask(ctx, "привет", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.SearchPerformed {
		t.Error("SearchPerformed = true for a greeting")
	}
	if len(searcher.queries) != 0 {
		t.Errorf("search was called: %v", searcher.queries)
	}
}

func TestAsk_RewrittenQueryUsedForSearch(t *testing.T) {
	searcher := &stubSearcher{text: "результаты"}
	completer := &stubCompleter{answer: "ответ"}
	detector := staticDetector{llm.Detection{SearchNeeded: true, SearchQuery: "погода Москва прогноз"}}
	a := newTestAgent(t, ModelPolicy{Detector: detector}, searcher, completer)

	if _, err := a.Ask(ctx, "скажи мне какая сейчас погода в Москве пожалуйста", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "погода Москва прогноз" {
		t.Errorf("search queries = %v, want the rewritten query", searcher.queries)
	}
}

func TestAsk_SearchFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("upstream down")}
	completer := &stubCompleter{answer: "Ответ из собственных знаний."}
	a := newTestAgent(t, classify.Always{}, searcher, completer)

	ex, err := a.Ask(ctx, "новости сегодня", Options{})
	if err != nil {
		t.Fatalf("search failure must not surface: %v", err)
	}
	if ex.SearchPerformed {
		t.Error("SearchPerformed = true after a failed search")
	}
	if ex.Response != "Ответ из собственных знаний." {
		t.Errorf("Response = %q", ex.Response)
	}
	if strings.Contains(completer.prompts[0], "АКТУАЛЬНАЯ ИНФОРМАЦИЯ") {
		t.Error("prompt contains a search section after a failed search")
	}
}

func TestAsk_CompletionFailureApologizes(t *testing.T) {
	completer := &stubCompleter{err: errors.New("timeout")}
	a := newTestAgent(t, classify.Heuristic{}, nil, completer)

	ex, err := a.Ask(ctx, "привет", Options{})
	if err != nil {
		t.Fatalf("completion failure must not surface: %v", err)
	}
	if ex.Response != apologyResponse {
		t.Errorf("Response = %q, want the apology text", ex.Response)
	}
}

type staticDetector struct {
	det llm.Detection
}

func (d staticDetector) DetectSearch(context.Context, string) llm.Detection {
	return d.det
}

func TestPolicyByName(t *testing.T) {
	detector := staticDetector{}
	tests := []struct {
		name string
		want classify.Policy
	}{
		{"heuristic", classify.Heuristic{}},
		{"always", classify.Always{}},
		{"model", ModelPolicy{Detector: detector}},
		{"", classify.Heuristic{}},
		{"bogus", classify.Heuristic{}},
	}
	for _, tt := range tests {
		got := PolicyByName(tt.name, detector)
		if got != tt.want {
			t.Errorf("PolicyByName(%q) = %T, want %T", tt.name, got, tt.want)
		}
	}
}

func TestPolicyByName_ModelWithoutDetector(t *testing.T) {
	if got := PolicyByName("model", nil); got != (classify.Heuristic{}) {
		t.Errorf("PolicyByName(model, nil) = %T, want Heuristic", got)
	}
}
