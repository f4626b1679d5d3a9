package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// FindingContext is the finding text offered to cascade inference.
type FindingContext struct {
	Type            string `json:"type"`
	Description     string `json:"description"`
	ClassroomImpact string `json:"classroom_impact,omitempty"`
	GradeBand       string `json:"grade_band"`
}

// CascadeMessages asks for a JSON object containing exactly the missing fields.
// Known fields are given as read-only context.
func CascadeMessages(canonicalKey string, finding FindingContext, known map[string]string, missing []string) []openai.ChatCompletionMessage {
	system := `You write concise, parent-friendly K-12 accommodation content.
Return one JSON object only (no markdown, no commentary, no code fences).
Include exactly the requested keys, each with a short string value. Do not include any other keys.`

	findingJSON, _ := json.Marshal(finding)
	knownJSON, _ := json.Marshal(known)

	var b strings.Builder
	fmt.Fprintf(&b, "Canonical key: %s\n", canonicalKey)
	fmt.Fprintf(&b, "Finding: %s\n", findingJSON)
	fmt.Fprintf(&b, "Known fields (read-only, do not repeat): %s\n", knownJSON)
	fmt.Fprintf(&b, "Requested keys: %s\n", strings.Join(missing, ", "))

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: b.String()},
	}
}

// ExtractJSONObject trims code fences and surrounding prose from a model reply.
func ExtractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}
