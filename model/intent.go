package model

// Entity keys produced by the classifier.
const (
	EntityPrice               = "price"
	EntityPercentage          = "percentage"
	EntityRegion              = "region"
	EntityDiscount            = "discount"
	EntityDate                = "date"
	EntitySKUCount            = "sku_count"
	EntityStoreCount          = "store_count"
	EntityDuration            = "duration"
	EntityProductSeries       = "product_series"
	EntityProductName         = "product_name"
	EntityCompetitorReference = "competitor_reference"
)

// Intent is the classified purpose of a request.
type Intent struct {
	Type           string                 `json:"type"`
	Confidence     float64                `json:"confidence"`
	Entities       map[string]interface{} `json:"entities,omitempty"`
	RequiredAgents []string               `json:"requiredAgents,omitempty"`
	OptionalAgents []string               `json:"optionalAgents,omitempty"`
}

// Clone returns a deep copy.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	return &Intent{
		Type:           i.Type,
		Confidence:     i.Confidence,
		Entities:       CloneMap(i.Entities),
		RequiredAgents: CloneStrings(i.RequiredAgents),
		OptionalAgents: CloneStrings(i.OptionalAgents),
	}
}
