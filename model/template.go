package model

// Complexity levels reported by input enrichment.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

// Template is a reusable operations scenario. Requests are matched to a
// template by its keywords and by how much they resemble its example.
type Template struct {
	ID               string                 `json:"id" yaml:"id" validate:"required"`
	Name             string                 `json:"name" yaml:"name" validate:"required"`
	Description      string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Category         string                 `json:"category" yaml:"category" validate:"required"`
	Icon             string                 `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color            string                 `json:"color,omitempty" yaml:"color,omitempty"`
	Pattern          string                 `json:"template" yaml:"template"`
	Keywords         []string               `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	RequiredEntities []string               `json:"requiredEntities,omitempty" yaml:"requiredEntities,omitempty"`
	OptionalEntities []string               `json:"optionalEntities,omitempty" yaml:"optionalEntities,omitempty"`
	Example          string                 `json:"example,omitempty" yaml:"example,omitempty"`
	Defaults         map[string]interface{} `json:"defaultValues,omitempty" yaml:"defaultValues,omitempty"`
	Impact           *TemplateImpact        `json:"estimatedImpact,omitempty" yaml:"estimatedImpact,omitempty"`
}

// TemplateImpact is the typical reach of a scenario.
type TemplateImpact struct {
	Stores        int     `json:"stores" yaml:"stores"`
	SKUs          int     `json:"skus" yaml:"skus"`
	DurationHours float64 `json:"durationHours" yaml:"durationHours"`
}

// Enrichment is a request with its entities completed from the matched
// template, a normalized wording and a complexity level.
type Enrichment struct {
	Input      string                 `json:"originalInput"`
	Entities   map[string]interface{} `json:"entities"`
	Template   *Template              `json:"matchedTemplate,omitempty"`
	Normalized string                 `json:"normalizedInput"`
	Complexity string                 `json:"complexityLevel"`
}
