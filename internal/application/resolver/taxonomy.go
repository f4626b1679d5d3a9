package resolver

import "strings"

type stem struct {
	name     string
	key      string
	keywords []string
}

// stems are matched in declaration order; the first hit wins even when a
// later stem is more specific.
var stems = []stem{
	{name: "processing_speed", key: "processing_speed_deficit", keywords: []string{"processing speed", "slow processing", "processing", "slow to complete", "speed"}},
	{name: "sustained_attention", key: "sustained_attention_deficit", keywords: []string{"attention", "focus", "distractib", "adhd", "inattent"}},
	{name: "executive_function", key: "executive_function_deficit", keywords: []string{"executive", "organiz", "planning", "time management", "task initiation"}},
	{name: "working_memory", key: "working_memory_deficit", keywords: []string{"working memory", "memory", "recall", "multi-step"}},
	{name: "test_anxiety", key: "test_anxiety", keywords: []string{"test anxiety", "anxiety", "anxious", "panic"}},
}

// ExpertKeys is the closed key set offered to expert inference.
func ExpertKeys() []string {
	out := make([]string, len(stems))
	for i, s := range stems {
		out[i] = s.key
	}
	return out
}

// KeywordMatch searches surface term, then description.
func KeywordMatch(surfaceTerm, description string) (string, bool) {
	for _, text := range []string{surfaceTerm, description} {
		lower := strings.ToLower(text)
		if strings.TrimSpace(lower) == "" {
			continue
		}
		for _, s := range stems {
			for _, kw := range s.keywords {
				if strings.Contains(lower, kw) {
					return s.key, true
				}
			}
		}
	}
	return "", false
}
