package ai

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
)

// Function names the model may call.
const (
	ToolCatalogFindings      = "catalog_findings"
	ToolPopulateItemMaster   = "populate_item_master"
	ToolLookupAccommodations = "lookup_accommodations"
)

// CatalogFindingsArgs is the argument payload of catalog_findings.
type CatalogFindingsArgs struct {
	Findings []CatalogedFinding `json:"findings"`
}

type CatalogedFinding struct {
	Type            string `json:"type"`
	Description     string `json:"description"`
	RelevanceScore  int    `json:"relevance_score"`
	ClassroomImpact string `json:"classroom_impact"`
	RankOrder       int    `json:"rank_order"`
}

// PopulateK12Args is the K-12 argument payload of populate_item_master.
type PopulateK12Args struct {
	FindingType        string `json:"finding_type"`
	FindingDescription string `json:"finding_description"`
	RankOrder          int    `json:"rank_order"`
	CanonicalKey       string `json:"canonical_key"`
	SurfaceTerm        string `json:"surface_term"`
	EvidenceBasis      string `json:"evidence_basis"`
}

// PopulateGenericArgs is the post-secondary argument payload of populate_item_master.
type PopulateGenericArgs struct {
	Barriers       []BarrierArg       `json:"barriers"`
	Accommodations []AccommodationArg `json:"accommodations"`
}

type BarrierArg struct {
	CanonicalKey string `json:"canonical_key"`
	Description  string `json:"description"`
	Evidence     string `json:"evidence"`
	SurfaceTerm  string `json:"surface_term"`
}

type AccommodationArg struct {
	CanonicalKey  string `json:"canonical_key"`
	Description   string `json:"description"`
	Justification string `json:"justification"`
}

// LookupAccommodationsArgs is the argument payload of lookup_accommodations.
type LookupAccommodationsArgs struct {
	CanonicalKey string `json:"canonical_key"`
	SurfaceTerm  string `json:"surface_term"`
	Evidence     string `json:"evidence"`
}

var catalogFindingsTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        ToolCatalogFindings,
		Description: "Catalog every strength and weakness found in the documents. Mark the top 4 strengths and top 3 weaknesses with a rank_order starting at 1; leave rank_order 0 for the rest.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"findings": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"type":             {Type: jsonschema.String, Enum: []string{"strength", "weakness"}},
							"description":      {Type: jsonschema.String},
							"relevance_score":  {Type: jsonschema.Integer, Description: "1 (low) to 10 (high)"},
							"classroom_impact": {Type: jsonschema.String},
							"rank_order":       {Type: jsonschema.Integer, Description: "0 when not selected"},
						},
						Required: []string{"type", "description", "relevance_score"},
					},
				},
			},
			Required: []string{"findings"},
		},
	},
}

var populateK12Tool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        ToolPopulateItemMaster,
		Description: "Populate one item master entry for a selected finding. Call once per selected finding.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"finding_type":        {Type: jsonschema.String, Enum: []string{"strength", "weakness"}},
				"finding_description": {Type: jsonschema.String},
				"rank_order":          {Type: jsonschema.Integer},
				"canonical_key":       {Type: jsonschema.String, Description: "taxonomy key, or unknown"},
				"surface_term":        {Type: jsonschema.String, Description: "the wording used in the documents"},
				"evidence_basis":      {Type: jsonschema.String},
			},
			Required: []string{"finding_type", "finding_description", "rank_order"},
		},
	},
}

var populateGenericTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        ToolPopulateItemMaster,
		Description: "Record functional barriers with their evidence and the accommodations that address them.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"barriers": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"canonical_key": {Type: jsonschema.String},
							"description":   {Type: jsonschema.String},
							"evidence":      {Type: jsonschema.String},
							"surface_term":  {Type: jsonschema.String},
						},
						Required: []string{"description"},
					},
				},
				"accommodations": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"canonical_key": {Type: jsonschema.String},
							"description":   {Type: jsonschema.String},
							"justification": {Type: jsonschema.String},
						},
						Required: []string{"canonical_key", "description"},
					},
				},
			},
			Required: []string{"barriers"},
		},
	},
}

var lookupAccommodationsTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        ToolLookupAccommodations,
		Description: "Look up the reference accommodations for a functional barrier.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"canonical_key": {Type: jsonschema.String},
				"surface_term":  {Type: jsonschema.String},
				"evidence":      {Type: jsonschema.String},
			},
			Required: []string{"surface_term"},
		},
	},
}

// ToolsFor returns the static function schema set for a module.
func ToolsFor(module analysis.ModuleType) []openai.Tool {
	switch module {
	case analysis.ModuleK12:
		return []openai.Tool{catalogFindingsTool, populateK12Tool}
	case analysis.ModulePostSecondary, analysis.ModuleTutoring:
		return []openai.Tool{populateGenericTool, lookupAccommodationsTool}
	}
	return nil
}

// ForceFunction builds a tool_choice that forces the named function.
func ForceFunction(name string) *openai.ToolChoice {
	return &openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: name},
	}
}
