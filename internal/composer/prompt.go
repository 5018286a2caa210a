// Package composer merges the user's query and search output into a single
// instruction block for the completion model.
package composer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// searchBanner precedes the raw search text inside the composed prompt.
const searchBanner = "АКТУАЛЬНАЯ ИНФОРМАЦИЯ ИЗ ИНТЕРНЕТА:"

// instructionBlock is the fixed directive set attached to every
// search-augmented prompt.
const instructionBlock = `ИНСТРУКЦИИ:
1. Для ответа на запрос пользователя СТРОГО ИСПОЛЬЗУЙ предоставленную информацию из поиска.
2. НИКОГДА не выдумывай факты и не дополняй информацию своими знаниями, когда отвечаешь на вопросы о текущих данных, рейтингах, ценах или событиях.
3. Если в поисковых результатах есть противоречия, укажи это и приведи разные данные с источниками.
4. Четко укажи временной период, к которому относятся данные, и приведи источники информации.
5. Для запросов о будущих периодах всегда опирайся на последние известные данные и явно указывай, что это актуальная информация на текущий момент, а не прогноз.`

const (
	futureDirective = "ВАЖНО: Запрос касается будущего периода. Не делай предположений о будущем. " +
		"Используй ТОЛЬКО самые актуальные данные из поиска и явно укажи, что это последние доступные данные, " +
		"а не прогноз на запрашиваемый период. Чётко обозначь дату актуальности информации."

	rankingDirective = "ВАЖНО: Запрос касается рейтинга или списка. Приведи точный список из поисковых результатов. " +
		"Не изменяй порядок элементов и сохрани все числовые показатели. " +
		"Обязательно укажи источник данных и дату их актуальности."

	factualDirective = "ВАЖНО: Запрос требует фактической информации. Приведи точные данные из поисковых результатов. " +
		"Включи все релевантные числа, даты и факты. Избегай обобщений."
)

var (
	futureWords  = []string{"будущ", "следующ", "прогноз"}
	rankingWords = []string{"топ", "рейтинг", "список", "самый", "лучший"}
	factualWords = []string{"сколько", "где", "когда", "кто", "факт", "статистика"}
)

var yearPattern = regexp.MustCompile(`20\d\d`)

// Composer builds prompts for the completion model. Engine identifies the
// search backend in the provenance note.
type Composer struct {
	Engine string

	now func() time.Time
}

// New creates a Composer that stamps provenance notes with the given search
// engine identifier.
func New(engine string) *Composer {
	return &Composer{Engine: engine, now: time.Now}
}

// Combine merges the original query and the search text into one instruction
// block. An empty searchText means no search was performed: the result is a
// minimal prompt asking the model to answer from its own knowledge.
func (c *Composer) Combine(query, searchText string) string {
	if strings.TrimSpace(searchText) == "" {
		return fmt.Sprintf("Запрос пользователя: %s\n\nПожалуйста, ответь на этот запрос, используя свои знания.", query)
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	engine := c.Engine
	if engine == "" {
		engine = "неизвестно"
	}
	provenance := fmt.Sprintf("[Информация получена с помощью поисковой модели %s по состоянию на %s]",
		engine, now().Format("02.01.2006"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Запрос пользователя: %s\n\n", query)
	fmt.Fprintf(&sb, "%s\n%s\n\n", searchBanner, searchText)
	fmt.Fprintf(&sb, "%s\n\n", provenance)
	sb.WriteString(instructionBlock)

	if directive := directiveFor(query, now()); directive != "" {
		sb.WriteString("\n\n")
		sb.WriteString(directive)
	}

	sb.WriteString("\n\nОтвет для пользователя:")
	return sb.String()
}

// directiveFor picks at most one extra instruction based on what the query is
// about, future-date handling taking precedence over ranking and factual.
func directiveFor(query string, now time.Time) string {
	lower := strings.ToLower(query)

	if referencesFuture(lower, now) {
		return futureDirective
	}
	if containsAny(lower, rankingWords) {
		return rankingDirective
	}
	if containsAny(lower, factualWords) {
		return factualDirective
	}
	return ""
}

func referencesFuture(lower string, now time.Time) bool {
	for _, m := range yearPattern.FindAllString(lower, -1) {
		if year, err := strconv.Atoi(m); err == nil && year > now.Year() {
			return true
		}
	}
	return containsAny(lower, futureWords)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
