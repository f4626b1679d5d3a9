package report

import (
	"strings"
	"testing"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

func sampleRecords() []itemmaster.ItemMasterRecord {
	return []itemmaster.ItemMasterRecord{
		{
			CanonicalKey:     "working_memory_deficit",
			ItemLabel:        "Working Memory",
			Support1:         "Chunk directions",
			CautionNote:      "Not low effort",
			EvidenceBasis:    "WISC-V WMI 78",
			ValidationStatus: itemmaster.StatusValidated,
		},
		{
			CanonicalKey:     "processing_speed_deficit",
			ItemLabel:        "Processing Speed",
			Support1:         "Extended time",
			Support2:         "Reduced copying",
			EvidenceBasis:    "PSI 80",
			ValidationStatus: itemmaster.StatusPartialInference,
			InferredFields:   []string{itemmaster.FieldSupport2},
		},
		{
			CanonicalKey:     itemmaster.UnknownBarrier,
			EvidenceBasis:    "Unclear wording",
			ValidationStatus: itemmaster.StatusFlagged,
		},
	}
}

var sampleCtx = Context{UniqueID: "S-1", ReportAuthor: "Dr. Lee", StudentGrade: "4", AnalysisDate: "2026-10-16"}

func TestRenderIsDeterministic(t *testing.T) {
	tpl := "# Report for {{unique_id}} ({{analysis_date}})\n{{validated_items}}{{review_items}}{{flagged_items}}"
	a := Render(sampleRecords(), tpl, sampleCtx)
	b := Render(sampleRecords(), tpl, sampleCtx)
	if a != b {
		t.Fatalf("render not idempotent")
	}
	if Fallback(sampleRecords(), sampleCtx) != Fallback(sampleRecords(), sampleCtx) {
		t.Fatalf("fallback not idempotent")
	}
}

func TestRenderBucketsAndCounts(t *testing.T) {
	tpl := "Total {{total_count}}: {{validated_count}}/{{review_count}}/{{flagged_count}} by {{report_author}} major {{program_major}}\n" +
		"## Validated\n{{validated_items}}## Review\n{{review_items}}## Flagged\n{{flagged_items}}"
	out := Render(sampleRecords(), tpl, sampleCtx)

	if !strings.HasPrefix(out, "Total 3: 1/1/1 by Dr. Lee major N/A\n") {
		t.Fatalf("header not substituted:\n%s", out)
	}
	validated := strings.Index(out, "### Working Memory")
	review := strings.Index(out, "### Processing Speed")
	flagged := strings.Index(out, "### unknown_barrier")
	if !(validated < review && review < flagged) || validated < 0 {
		t.Fatalf("records not in bucket order:\n%s", out)
	}
	if !strings.Contains(out, "- **Support 2:** Reduced copying (AI-generated)\n") {
		t.Fatalf("inferred field not marked:\n%s", out)
	}
	if strings.Contains(out, "Chunk directions (AI-generated)") {
		t.Fatalf("lookup field wrongly marked:\n%s", out)
	}
}

func TestRenderLegacyRepeatedReviewPlaceholder(t *testing.T) {
	tpl := "## Review\n{{review_items}}## Flagged\n{{review_items}}"
	out := Render(sampleRecords(), tpl, sampleCtx)

	flaggedHeading := strings.Index(out, "## Flagged")
	if flaggedHeading < 0 {
		t.Fatalf("missing flagged heading:\n%s", out)
	}
	if strings.Index(out, "### unknown_barrier") < flaggedHeading {
		t.Fatalf("flagged record should follow the second placeholder:\n%s", out)
	}
	if strings.LastIndex(out, "### Processing Speed") > flaggedHeading {
		t.Fatalf("review record rendered in flagged slot:\n%s", out)
	}
}

func TestFallbackWithoutTemplate(t *testing.T) {
	out := Render(sampleRecords(), "   ", sampleCtx)
	if !strings.HasPrefix(out, "# Accommodation Recommendations\n") {
		t.Fatalf("fallback heading missing:\n%s", out)
	}
	if !strings.Contains(out, "## General guidance") || !strings.Contains(out, "### Working Memory") {
		t.Fatalf("fallback body incomplete:\n%s", out)
	}

	empty := Fallback(nil, Context{})
	if !strings.Contains(empty, "No structured recommendations") {
		t.Fatalf("empty fallback:\n%s", empty)
	}
}
