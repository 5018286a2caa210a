// Package classify decides whether a user query needs a web search before
// being answered. The decision is a pluggable policy: the keyword heuristic
// and the always-search policy are behaviorally incompatible, so callers pick
// one explicitly instead of the package hard-coding a choice.
package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Result is a single classification outcome. RewrittenQuery is optional: a
// policy may suggest a better search query than the user's original text.
type Result struct {
	NeedsSearch    bool
	RewrittenQuery string
}

// Policy decides search necessity for a query. Implementations must be
// fail-open: when a decision cannot be made confidently, prefer an extra
// search over a stale answer.
type Policy interface {
	Classify(ctx context.Context, query string) Result
}

// longQueryThreshold is the length above which a query is assumed to be a
// complex question that benefits from search.
const longQueryThreshold = 50

// searchKeywords are single terms whose presence suggests the answer depends
// on current data: temporal markers, volatile-information categories, entity
// references, ranking vocabulary, and finance terms.
var searchKeywords = []string{
	// temporal markers
	"сейчас", "текущий", "актуальный", "свежий", "недавний",
	"сегодня", "вчера", "последний", "новый", "обновленный",
	"современный", "на данный момент", "в настоящее время",
	"этот год", "этот месяц", "эта неделя",
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",

	// volatile-information categories
	"новости", "погода", "цена", "курс", "статистика", "данные",
	"обновление", "событие", "происшествие", "случилось",

	// entity references
	"компания", "компаний", "организация", "технология", "продукт",
	"сервис", "приложение", "устройство", "гаджет",

	// rankings and lists
	"топ", "рейтинг", "список", "лидер", "самых", "лучших", "богатейших",
	"известных", "популярных", "дорогих", "крупнейших", "успешных",

	// phrasings that imply current state
	"как сейчас", "что нового", "последние изменения", "текущая ситуация",
	"как обстоят дела", "что происходит", "какие новости",

	// finance and economics
	"акции", "биржа", "валюта", "доллар", "евро", "рубль", "биткоин", "криптовалюта",
	"инвестиции", "экономика", "инфляция", "ставка", "банк", "капитализация",
	"рыночная стоимость", "стоимость", "цена акций", "выручка", "доход", "прибыль",
}

// strongIndicators are phrases that almost always mean the user wants looked-up
// information rather than the model's own knowledge.
var strongIndicators = []string{
	"расскажи о", "что такое", "кто такой", "где находится",
	"как работает", "объясни", "опиши", "найди информацию",
	"поищи", "узнай", "сколько стоит", "какая цена", "как купить",
	"как сделать", "как использовать", "как применять", "инструкция",
	"найди топ", "покажи топ", "рейтинг", "кто самый", "найди список",
	"актуальный список", "текущий рейтинг", "на сегодня", "на текущий момент",
}

var (
	rankingWords = []string{"топ", "рейтинг", "список", "самых", "лучших"}
	entityWords  = []string{"компания", "компаний", "организация", "банк", "бренд"}
	yearMarkers  = []string{"2023", "2024", "2025", "год", "года"}
)

var yearPattern = regexp.MustCompile(`20[2-9][0-9]`)

// Heuristic is the rule-based classifier. It fires on recency markers,
// strong-indicator phrases, ranking/entity and year/entity co-occurrences,
// explicit year literals, and on queries over the length threshold.
type Heuristic struct{}

func (Heuristic) Classify(_ context.Context, query string) Result {
	return Result{NeedsSearch: needsSearch(query)}
}

func needsSearch(query string) bool {
	lower := strings.ToLower(query)

	for _, indicator := range strongIndicators {
		if strings.Contains(lower, indicator) {
			slog.Debug("strong search indicator found", "indicator", indicator)
			return true
		}
	}

	for _, rank := range rankingWords {
		if !strings.Contains(lower, rank) {
			continue
		}
		for _, entity := range entityWords {
			if strings.Contains(lower, entity) {
				slog.Debug("ranking + entity combination found", "ranking", rank, "entity", entity)
				return true
			}
		}
	}

	for _, year := range yearMarkers {
		if !strings.Contains(lower, year) {
			continue
		}
		for _, entity := range entityWords {
			if strings.Contains(lower, entity) {
				slog.Debug("year + entity combination found", "year", year, "entity", entity)
				return true
			}
		}
	}

	for _, keyword := range searchKeywords {
		if strings.Contains(lower, keyword) {
			slog.Debug("search keyword found", "keyword", keyword)
			return true
		}
	}

	if yearPattern.MatchString(lower) {
		slog.Debug("year reference detected", "query", query)
		return true
	}

	if utf8.RuneCountInString(query) > longQueryThreshold {
		slog.Debug("long query, assuming search is needed", "length", utf8.RuneCountInString(query))
		return true
	}

	return false
}

// Always unconditionally requests a search, deferring all real decision-making
// to the model-side detection call.
type Always struct{}

func (Always) Classify(context.Context, string) Result {
	return Result{NeedsSearch: true}
}
