package classify

import (
	"context"
	"testing"
)

var ctx = context.Background()

func TestHeuristic_NeedsSearch(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"weather keyword", "Какая погода сегодня в Москве?", true},
		{"strong indicator", "Расскажи о теории относительности", true},
		{"ranking plus entity", "топ компаний по выручке", true},
		{"year plus entity", "крупнейший банк в 2024", true},
		{"explicit year literal", "чемпионат мира 2026", true},
		{"finance keyword", "курс доллара", true},
		{"short neutral query", "Привет!", false},
		{"short math question", "2+2?", false},
		{"short opinion", "Ты умеешь шутить?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Heuristic{}.Classify(ctx, tt.query)
			if got.NeedsSearch != tt.want {
				t.Errorf("Classify(%q).NeedsSearch = %v, want %v", tt.query, got.NeedsSearch, tt.want)
			}
		})
	}
}

// Queries over the length threshold are treated as complex questions even
// without any keyword hits.
func TestHeuristic_LongQuery(t *testing.T) {
	long := "Почему некоторые птицы осенью улетают на юг, а другие остаются зимовать в городах?"
	got := Heuristic{}.Classify(ctx, long)
	if !got.NeedsSearch {
		t.Errorf("expected long query to need search: %q", long)
	}
}

func TestHeuristic_FutureYearAlwaysFires(t *testing.T) {
	for _, q := range []string{"итоги 2027", "планы на 2030", "бюджет 2042"} {
		if got := (Heuristic{}).Classify(ctx, q); !got.NeedsSearch {
			t.Errorf("Classify(%q).NeedsSearch = false, want true", q)
		}
	}
}

func TestHeuristic_NoRewrittenQuery(t *testing.T) {
	got := Heuristic{}.Classify(ctx, "Какая погода сегодня в Москве?")
	if got.RewrittenQuery != "" {
		t.Errorf("heuristic must not rewrite the query, got %q", got.RewrittenQuery)
	}
}

func TestAlways(t *testing.T) {
	for _, q := range []string{"", "Привет!", "Какая погода в Москве?"} {
		if got := (Always{}).Classify(ctx, q); !got.NeedsSearch {
			t.Errorf("Always.Classify(%q).NeedsSearch = false, want true", q)
		}
	}
}
