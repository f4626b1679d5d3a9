package prompt

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ExpertInferenceMessages asks the model to place a term into a closed key set.
func ExpertInferenceMessages(surfaceTerm, description, module string, keys []string, unknown string) []openai.ChatCompletionMessage {
	system := fmt.Sprintf(`You are an expert in psychoeducational assessment and disability accommodations.
Map the described functional barrier to exactly one canonical key from this list:
%s
If none fits, answer %s.
Answer with the key only. No punctuation, no explanation.`, "- "+strings.Join(keys, "\n- "), unknown)

	user := fmt.Sprintf("Module: %s\nTerm: %s\nDescription: %s", module, orDash(surfaceTerm), orDash(description))

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
