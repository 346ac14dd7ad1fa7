package models

// Requests for the ops HTTP endpoints. Defined in domain for consistency and reuse.

type DecisionsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type RolloverRequest struct {
	Equity float64 `json:"equity" validate:"gte=0"`
}
