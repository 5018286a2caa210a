package composer

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func fixedComposer() *Composer {
	c := New("sonar")
	c.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCombine_NoSearchText(t *testing.T) {
	c := fixedComposer()
	got := c.Combine("Какая погода в Москве?", "")

	if !strings.Contains(got, "Какая погода в Москве?") {
		t.Errorf("prompt missing original query: %q", got)
	}
	if strings.Contains(got, searchBanner) {
		t.Errorf("prompt must not contain the search banner without search text: %q", got)
	}
	if !strings.Contains(got, "используя свои знания") {
		t.Errorf("expected own-knowledge instruction: %q", got)
	}
}

func TestCombine_WithSearchText(t *testing.T) {
	c := fixedComposer()
	query := "Какая погода сегодня в Москве?"
	got := c.Combine(query, "В Москве +20°C, облачно.")

	for _, want := range []string{
		query,
		searchBanner,
		"В Москве +20°C, облачно.",
		"[Информация получена с помощью поисковой модели sonar по состоянию на 15.06.2025]",
		"ИНСТРУКЦИИ:",
		"НИКОГДА не выдумывай факты",
		"Ответ для пользователя:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestCombine_QueryVerbatim(t *testing.T) {
	c := fixedComposer()
	queries := []string{
		"Какая погода сегодня в Москве?",
		`запрос с "кавычками" и %s форматом`,
		"",
	}
	for _, q := range queries {
		for _, searchText := range []string{"", "результаты поиска"} {
			if got := c.Combine(q, searchText); !strings.Contains(got, q) {
				t.Errorf("Combine(%q, %q) lost the query text", q, searchText)
			}
		}
	}
}

func TestDirectives(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"future year", "топ компаний в 2030 году", "касается будущего периода"},
		{"future word", "прогноз курса доллара", "касается будущего периода"},
		{"ranking", "топ 10 компаний по капитализации", "рейтинга или списка"},
		{"factual", "сколько людей живет в Москве", "фактической информации"},
	}

	c := fixedComposer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Combine(tt.query, "данные поиска")
			if !strings.Contains(got, tt.want) {
				t.Errorf("prompt for %q missing directive %q", tt.query, tt.want)
			}
		})
	}
}

func TestDirectives_NoneForPlainQuery(t *testing.T) {
	c := fixedComposer()
	got := c.Combine("расскажи про Москву", "данные поиска")
	if strings.Contains(got, "ВАЖНО:") {
		t.Errorf("unexpected directive for plain query:\n%s", got)
	}
}

// A current-year mention is not a future reference.
func TestDirectives_CurrentYearNotFuture(t *testing.T) {
	c := fixedComposer()
	got := c.Combine("события 2025 года", "данные поиска")
	if strings.Contains(got, "касается будущего периода") {
		t.Error("current year treated as future")
	}
}

func TestCombine_UnknownEngine(t *testing.T) {
	c := New("")
	c.now = func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) }
	got := c.Combine("запрос", "результат")
	want := fmt.Sprintf("поисковой модели %s по состоянию", "неизвестно")
	if !strings.Contains(got, want) {
		t.Errorf("expected unknown-engine provenance, got:\n%s", got)
	}
}
