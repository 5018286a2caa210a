package search

import (
	"strings"
	"testing"
)

const markedAnswer = `1) КРАТКИЙ ФАКТИЧЕСКИЙ ОТВЕТ
Капитализация Apple составляет $3.4 трлн.

2) ПОДРОБНАЯ ИНФОРМАЦИЯ
Оценка основана на цене акции $224 и 15.3 млрд акций в обращении.

3) ИСТОЧНИКИ
- https://finance.yahoo.com/quote/AAPL/ (05.2025)
- https://www.bloomberg.com/quote/AAPL:US`

func TestSplitIntoSections_Markers(t *testing.T) {
	s := SplitIntoSections(markedAnswer)

	if !strings.Contains(s.Summary, "$3.4 трлн") {
		t.Errorf("Summary = %q", s.Summary)
	}
	if !strings.Contains(s.Detail, "15.3 млрд акций") {
		t.Errorf("Detail = %q", s.Detail)
	}
	if !strings.Contains(s.Sources, "finance.yahoo.com") {
		t.Errorf("Sources = %q", s.Sources)
	}
}

func TestSplitIntoSections_ParagraphFallback(t *testing.T) {
	text := "Сегодня в Москве +20°C.\n\nОблачно, без осадков, ветер 3 м/с.\n\nИсточник: https://meteoinfo.ru"
	s := SplitIntoSections(text)

	if s.Summary != "Сегодня в Москве +20°C." {
		t.Errorf("Summary = %q", s.Summary)
	}
	if !strings.Contains(s.Detail, "Облачно") {
		t.Errorf("Detail = %q", s.Detail)
	}
	if !strings.Contains(s.Sources, "meteoinfo.ru") {
		t.Errorf("Sources = %q", s.Sources)
	}
}

func TestSplitIntoSections_SingleParagraph(t *testing.T) {
	s := SplitIntoSections("Короткий ответ без структуры.")
	if s.Summary != "Короткий ответ без структуры." {
		t.Errorf("Summary = %q", s.Summary)
	}
	if s.Detail != "" || s.Sources != "" {
		t.Errorf("expected empty detail/sources, got %+v", s)
	}
}

func TestSplitIntoSections_Empty(t *testing.T) {
	s := SplitIntoSections("")
	if s.Summary != "" || s.Detail != "" || s.Sources != "" {
		t.Errorf("expected zero value for empty input, got %+v", s)
	}
}

func TestExtractURLs(t *testing.T) {
	text := `См. https://example.com/a и (https://example.org/b?x=1) а также текст без ссылок.`
	urls := ExtractURLs(text)
	if len(urls) != 2 {
		t.Fatalf("got %d urls: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/a" {
		t.Errorf("urls[0] = %q", urls[0])
	}
	if urls[1] != "https://example.org/b?x=1" {
		t.Errorf("urls[1] = %q", urls[1])
	}
}

func TestExtractURLs_None(t *testing.T) {
	if urls := ExtractURLs("никаких ссылок здесь нет"); len(urls) != 0 {
		t.Errorf("expected no urls, got %v", urls)
	}
}
