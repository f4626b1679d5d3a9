package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

// Template placeholders.
const (
	PlaceholderUniqueID       = "{{unique_id}}"
	PlaceholderProgramMajor   = "{{program_major}}"
	PlaceholderReportAuthor   = "{{report_author}}"
	PlaceholderStudentGrade   = "{{student_grade}}"
	PlaceholderAnalysisDate   = "{{analysis_date}}"
	PlaceholderTotalCount     = "{{total_count}}"
	PlaceholderValidatedCount = "{{validated_count}}"
	PlaceholderReviewCount    = "{{review_count}}"
	PlaceholderFlaggedCount   = "{{flagged_count}}"
	PlaceholderValidatedItems = "{{validated_items}}"
	PlaceholderReviewItems    = "{{review_items}}"
	PlaceholderFlaggedItems   = "{{flagged_items}}"
)

const aiMarker = " (AI-generated)"

// Context is the report metadata. AnalysisDate is passed in pre-formatted so
// rendering stays a pure function of its inputs.
type Context struct {
	UniqueID     string
	ProgramMajor string
	ReportAuthor string
	StudentGrade string
	AnalysisDate string
}

var fieldLabels = []struct {
	name  string
	label string
}{
	{itemmaster.FieldItemLabel, "Item"},
	{itemmaster.FieldParentFriendlyLabel, "In plain language"},
	{itemmaster.FieldClassroomObservation, "Classroom observation"},
	{itemmaster.FieldSupport1, "Support 1"},
	{itemmaster.FieldSupport2, "Support 2"},
	{itemmaster.FieldCautionNote, "Caution"},
}

type buckets struct {
	validated []itemmaster.ItemMasterRecord
	review    []itemmaster.ItemMasterRecord
	flagged   []itemmaster.ItemMasterRecord
}

func split(records []itemmaster.ItemMasterRecord) buckets {
	var b buckets
	for _, r := range records {
		switch r.ValidationStatus {
		case itemmaster.StatusValidated:
			b.validated = append(b.validated, r)
		case itemmaster.StatusFlagged:
			b.flagged = append(b.flagged, r)
		default:
			b.review = append(b.review, r)
		}
	}
	return b
}

// Render produces the narrative for records. An empty template yields the
// fallback narrative.
func Render(records []itemmaster.ItemMasterRecord, template string, ctx Context) string {
	if strings.TrimSpace(template) == "" {
		return Fallback(records, ctx)
	}
	b := split(records)

	out := template
	// legacy templates repeat the review placeholder where the flagged list goes
	if !strings.Contains(out, PlaceholderFlaggedItems) {
		if first := strings.Index(out, PlaceholderReviewItems); first >= 0 {
			start := first + len(PlaceholderReviewItems)
			if second := strings.Index(out[start:], PlaceholderReviewItems); second >= 0 {
				at := start + second
				out = out[:at] + PlaceholderFlaggedItems + out[at+len(PlaceholderReviewItems):]
			}
		}
	}

	r := strings.NewReplacer(
		PlaceholderUniqueID, orNA(ctx.UniqueID),
		PlaceholderProgramMajor, orNA(ctx.ProgramMajor),
		PlaceholderReportAuthor, orNA(ctx.ReportAuthor),
		PlaceholderStudentGrade, orNA(ctx.StudentGrade),
		PlaceholderAnalysisDate, orNA(ctx.AnalysisDate),
		PlaceholderTotalCount, strconv.Itoa(len(records)),
		PlaceholderValidatedCount, strconv.Itoa(len(b.validated)),
		PlaceholderReviewCount, strconv.Itoa(len(b.review)),
		PlaceholderFlaggedCount, strconv.Itoa(len(b.flagged)),
		PlaceholderValidatedItems, renderList(b.validated),
		PlaceholderReviewItems, renderList(b.review),
		PlaceholderFlaggedItems, renderList(b.flagged),
	)
	return r.Replace(out)
}

// Fallback is the fixed narrative used when no template is configured.
func Fallback(records []itemmaster.ItemMasterRecord, ctx Context) string {
	var sb strings.Builder
	sb.WriteString("# Accommodation Recommendations\n\n")
	if ctx.AnalysisDate != "" {
		fmt.Fprintf(&sb, "_Analysis date: %s_\n\n", ctx.AnalysisDate)
	}
	if len(records) == 0 {
		sb.WriteString("No structured recommendations were produced for this case.\n\n")
	} else {
		sb.WriteString(renderList(records))
	}
	sb.WriteString("## General guidance\n\n")
	sb.WriteString("Review each recommendation with the student and the support team. ")
	sb.WriteString("Items marked (AI-generated) were inferred and should be confirmed against the source documents before implementation.\n")
	return sb.String()
}

func renderList(records []itemmaster.ItemMasterRecord) string {
	if len(records) == 0 {
		return "_None._\n\n"
	}
	var sb strings.Builder
	for _, r := range records {
		renderRecord(&sb, r)
	}
	return sb.String()
}

func renderRecord(sb *strings.Builder, r itemmaster.ItemMasterRecord) {
	title := r.ItemLabel
	if strings.TrimSpace(title) == "" {
		title = r.CanonicalKey
	}
	fmt.Fprintf(sb, "### %s\n\n", title)
	fmt.Fprintf(sb, "- **Canonical key:** %s\n", r.CanonicalKey)
	for _, f := range fieldLabels {
		v := strings.TrimSpace(r.Field(f.name))
		if v == "" {
			continue
		}
		marker := ""
		if r.IsInferred(f.name) {
			marker = aiMarker
		}
		fmt.Fprintf(sb, "- **%s:** %s%s\n", f.label, v, marker)
	}
	fmt.Fprintf(sb, "- **Evidence:** %s\n", r.EvidenceBasis)
	fmt.Fprintf(sb, "- **Status:** %s\n\n", r.ValidationStatus)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
