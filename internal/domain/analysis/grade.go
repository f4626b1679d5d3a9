package analysis

import (
	"strconv"
	"strings"
)

const (
	GradeBandGeneral       = "general"
	GradeBandPostSecondary = "post_secondary"
)

// GradeBand maps a free-text student grade onto the lookup-table band.
func GradeBand(grade string) string {
	g := strings.ToLower(strings.TrimSpace(grade))
	g = strings.TrimPrefix(g, "grade")
	g = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(g, "th"), "st"), "nd"), "rd"))
	switch g {
	case "k", "kindergarten", "pk", "pre-k":
		return "k-2"
	}
	n, err := strconv.Atoi(g)
	if err != nil {
		return GradeBandGeneral
	}
	switch {
	case n >= 0 && n <= 2:
		return "k-2"
	case n >= 3 && n <= 5:
		return "3-5"
	case n >= 6 && n <= 8:
		return "6-8"
	case n >= 9 && n <= 12:
		return "9-12"
	default:
		return GradeBandGeneral
	}
}
