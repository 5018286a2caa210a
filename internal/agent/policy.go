package agent

import (
	"context"

	"github.com/ameleshko/otvet/internal/classify"
	"github.com/ameleshko/otvet/internal/llm"
)

// SearchDetector lets the language model itself decide whether a query needs
// a search. llm.Client satisfies this.
type SearchDetector interface {
	DetectSearch(ctx context.Context, query string) llm.Detection
}

// ModelPolicy asks the model for the search decision and a condensed search
// query. Detector failures surface as search needed, same as the heuristic's
// bias towards searching when in doubt.
type ModelPolicy struct {
	Detector SearchDetector
}

func (p ModelPolicy) Classify(ctx context.Context, query string) classify.Result {
	det := p.Detector.DetectSearch(ctx, query)
	return classify.Result{NeedsSearch: det.SearchNeeded, RewrittenQuery: det.SearchQuery}
}

// PolicyByName maps a configuration value to a classification policy.
// Unknown names fall back to the heuristic.
func PolicyByName(name string, detector SearchDetector) classify.Policy {
	switch name {
	case "always":
		return classify.Always{}
	case "model":
		if detector != nil {
			return ModelPolicy{Detector: detector}
		}
	}
	return classify.Heuristic{}
}
