package model

// AddressInput is one raw row of the input dataset. It is created once per
// row and never mutated.
type AddressInput struct {
	Row          int    `json:"row"`
	OriginalText string `json:"original_address"`
	Group        string `json:"city,omitempty"` // Empty when the input has no grouping column
}
