package search

import "strings"

// separators mark compound queries, checked in priority order. The first one
// found splits the query into a head and a recursively-split tail.
var separators = []string{
	". и ", " и ", ". а также ", ". также ", ". кроме того, ",
	". при этом ", ". еще ", ". плюс ",
}

// Topic vocabularies used to detect a two-topic query that lacks an explicit
// conjunction separator.
var (
	weatherTerms = []string{"погода", "погоде", "погоду", "погоды", "температура", "температуре", "температуры", "осадки", "осадков"}
	financeTerms = []string{"компания", "компании", "компаний", "акция", "акции", "акций", "капитализация", "капитализации", "рынок", "биржа", "рейтинг", "топ"}
	cryptoTerms  = []string{"крипто", "биткоин", "ethereum", "блокчейн"}
)

// SplitQuery breaks a compound query into sub-queries. This is a heuristic,
// not a guaranteed-correct segmenter: an atomic single-topic query comes back
// as a one-element slice containing the original text unchanged.
func SplitQuery(query string) []string {
	lower := strings.ToLower(query)

	for _, sep := range separators {
		idx := strings.Index(lower, sep)
		if idx < 0 {
			continue
		}
		head := strings.TrimSpace(query[:idx])
		tail := strings.TrimSpace(query[idx+len(sep):])
		parts := []string{head}
		if tail != "" {
			parts = append(parts, SplitQuery(tail)...)
		}
		return parts
	}

	// No explicit separator. If the query mixes at least two distinct topic
	// vocabularies, fall back to sentence- or comma-boundary splitting.
	if topicCount(lower) > 1 {
		for _, boundary := range []string{". ", ", "} {
			if !strings.Contains(query, boundary) {
				continue
			}
			var parts []string
			for _, p := range strings.Split(query, boundary) {
				p = strings.TrimSpace(p)
				if p != "" {
					parts = append(parts, p)
				}
			}
			if len(parts) > 1 {
				return parts
			}
		}
	}

	return []string{query}
}

func topicCount(lower string) int {
	count := 0
	for _, vocab := range [][]string{weatherTerms, financeTerms, cryptoTerms} {
		if containsAny(lower, vocab) {
			count++
		}
	}
	return count
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// knownCompanies is a fixed sample of names the enhancer recognizes, not a
// general entity recognizer. Unlisted companies fall through to the generic
// finance branch.
var knownCompanies = []string{
	"apple", "google", "microsoft", "amazon", "сбербанк", "газпром", "яндекс", "tesla",
}

var companyMentions = append([]string{"компании", "корпорации"}, knownCompanies...)

// EnhanceQuery appends a domain-specific clarifying instruction chosen by
// keyword match, most specific branch first.
func EnhanceQuery(query string) string {
	lower := strings.ToLower(query)

	if containsAny(lower, []string{"погода", "температура", "осадки"}) {
		return query + ". Найди актуальный прогноз погоды с указанием даты и источника данных."
	}

	if strings.Contains(lower, "капитализац") && containsAny(lower, companyMentions) {
		var names []string
		for _, company := range knownCompanies {
			if strings.Contains(lower, company) {
				names = append(names, company)
			}
		}
		companyStr := "указанной компании"
		if len(names) > 0 {
			companyStr = strings.Join(names, ", ")
		}
		return query + ". Укажи ТЕКУЩУЮ рыночную капитализацию " + companyStr + " в долларах США " +
			"на сегодняшний день. ОБЯЗАТЕЛЬНО укажи точную цифру, дату оценки и источник " +
			"данных (например, биржа NYSE/NASDAQ/MOEX). Используй финансовые и новостные сайты " +
			"с самыми актуальными данными - Bloomberg, Yahoo Finance, MarketWatch, Reuters или Google Finance."
	}

	if strings.Contains(lower, "акци") && containsAny(lower, companyMentions) {
		return query + ". Укажи ТОЛЬКО текущую цену акций на сегодняшний день. ОБЯЗАТЕЛЬНО укажи " +
			"точную цифру стоимости за акцию, биржевой тикер, дату и источник данных - биржу или " +
			"финансовый портал. Используй данные из Yahoo Finance, Bloomberg, MarketWatch или Reuters."
	}

	if containsAny(lower, []string{"компани", "капитализац", "биржа", "акци", "бизнес", "рейтинг", "топ"}) {
		return query + ". Предоставь ТОЛЬКО актуальные данные на текущую дату. Укажи точные цифры и источники информации (биржа, финансовый портал, годовой отчет компании)."
	}

	if containsAny(lower, []string{"крипто", "биткоин", "bitcoin", "eth", "блокчейн"}) {
		return query + ". Предоставь ТОЛЬКО самые актуальные данные с сегодняшней даты. Укажи текущие цены и источники (биржи, криптовалютные трекеры)."
	}

	return query + ". Предоставь только проверенные факты с указанием актуальных источников информации."
}
