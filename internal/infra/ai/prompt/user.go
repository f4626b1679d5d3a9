package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
)

// BuildUserMessage renders the request context and documents, in order, as
// the first user turn.
func BuildUserMessage(req analysis.Request) string {
	var b strings.Builder

	ctx := req.Context
	var meta []string
	if ctx.UniqueID != "" {
		meta = append(meta, "Student ID: "+ctx.UniqueID)
	}
	if ctx.ProgramMajor != "" {
		meta = append(meta, "Program/Major: "+ctx.ProgramMajor)
	}
	if ctx.ReportAuthor != "" {
		meta = append(meta, "Report author: "+ctx.ReportAuthor)
	}
	if ctx.StudentGrade != "" {
		meta = append(meta, "Grade: "+ctx.StudentGrade)
	}
	if len(meta) > 0 {
		b.WriteString("## Context\n")
		for _, m := range meta {
			b.WriteString("- ")
			b.WriteString(m)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Assessment documents\n")
	for i, doc := range req.Documents {
		name := strings.TrimSpace(doc.Filename)
		if name == "" {
			name = "untitled"
		}
		fmt.Fprintf(&b, "\n### Document %d: %s\n\n", i+1, name)
		b.WriteString(strings.TrimSpace(doc.Content))
		b.WriteString("\n")
	}
	return b.String()
}
